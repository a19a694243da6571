package chain

import "github.com/nrfta/remotequery-go/expr"

// Shape maps the members of projected records back to expressions over
// records of the remote collection. A nil *Shape is the shape of the remote
// collection itself.
type Shape struct {
	fields  map[string]expr.Expr
	order   []string
	unknown map[string]bool
	opaque  bool
}

// opaqueShape is produced by operations the engine cannot inspect.
var opaqueShape = &Shape{opaque: true}

// Resolve rewrites e, written against records of this shape, into an
// expression over remote records. Members the projection does not define
// resolve to null, matching what a local evaluation reads.
func (s *Shape) Resolve(e expr.Expr) (expr.Expr, bool) {
	if s == nil {
		return e, true
	}
	if s.opaque {
		return expr.Expr{}, false
	}
	return e.Substitute(func(name string) (expr.Expr, bool) {
		if s.unknown[name] {
			return expr.Expr{}, false
		}
		if f, ok := s.fields[name]; ok {
			return f, true
		}
		return expr.Const(nil), true
	})
}

// Project returns the shape of records projected from this shape.
func (s *Shape) Project(fields []Field) *Shape {
	out := &Shape{
		fields:  make(map[string]expr.Expr, len(fields)),
		unknown: map[string]bool{},
	}
	for _, f := range fields {
		out.order = append(out.order, f.Name)
		resolved, ok := s.Resolve(f.Value)
		if !ok {
			out.unknown[f.Name] = true
			delete(out.fields, f.Name)
			continue
		}
		delete(out.unknown, f.Name)
		out.fields[f.Name] = resolved
	}
	return out
}

// Root reports whether s is the shape of the remote collection.
func (s *Shape) Root() bool {
	return s == nil
}

// Ambiguous reports whether some member of s cannot be traced back to the
// remote collection.
func (s *Shape) Ambiguous() bool {
	return s != nil && (s.opaque || len(s.unknown) > 0)
}

// Fields returns the resolved projected members in declaration order.
// Members that could not be resolved are omitted.
func (s *Shape) Fields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, 0, len(s.fields))
	for _, name := range s.order {
		if f, ok := s.fields[name]; ok {
			out = append(out, Field{Name: name, Value: f})
		}
	}
	return out
}
