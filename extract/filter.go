package extract

import (
	"reflect"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/chain"
	"github.com/nrfta/remotequery-go/expr"
)

// FilterExtractor turns the predicates of a chain into server conditions.
//
// A predicate is split on And into atoms. Each atom the endpoint can express
// becomes one condition; the rest are dropped and left to local
// verification. A single Or or negated composite anywhere makes the whole
// query unsuitable for server filtering: no condition is sent and the
// records are streamed unfiltered.
type FilterExtractor struct {
	chain.BaseVisitor

	predicates []expr.Expr
	conditions []remotequery.Condition
	force      bool
}

func (x *FilterExtractor) VisitFilter(n *chain.Filter) error {
	x.add(n.Resolved)
	return nil
}

func (x *FilterExtractor) visitTerminal(p chain.Predicate) error {
	if p.Present() && p.Resolvable {
		x.add(p.Resolved)
	}
	return nil
}

func (x *FilterExtractor) VisitCount(n *chain.Count) error { return x.visitTerminal(n.Predicate) }
func (x *FilterExtractor) VisitAny(n *chain.Any) error     { return x.visitTerminal(n.Predicate) }
func (x *FilterExtractor) VisitFirst(n *chain.First) error { return x.visitTerminal(n.Predicate) }
func (x *FilterExtractor) VisitLast(n *chain.Last) error   { return x.visitTerminal(n.Predicate) }

func (x *FilterExtractor) add(e expr.Expr) {
	x.predicates = append(x.predicates, e)
	if !x.decompose(e) {
		x.force = true
	}
}

// Conditions returns the AND-ed server conditions. It is empty whenever
// ForceStream is set.
func (x *FilterExtractor) Conditions() []remotequery.Condition {
	if x.force {
		return nil
	}
	return x.conditions
}

// ForceStream reports whether some predicate cannot be decomposed.
func (x *FilterExtractor) ForceStream() bool {
	return x.force
}

// Verify returns the conjunction of every predicate, to be evaluated
// against each fetched record. It is invalid when the chain has no
// predicate.
func (x *FilterExtractor) Verify() expr.Expr {
	switch len(x.predicates) {
	case 0:
		return expr.Expr{}
	case 1:
		return x.predicates[0]
	default:
		return expr.And(x.predicates[0], x.predicates[1], x.predicates[2:]...)
	}
}

func (x *FilterExtractor) decompose(e expr.Expr) bool {
	switch e.Kind() {
	case expr.KindAnd:
		left := x.decompose(e.Child(0))
		right := x.decompose(e.Child(1))
		return left && right
	case expr.KindOr:
		return false
	case expr.KindNot:
		return x.negated(e.Child(0))
	default:
		if c, ok := atom(e); ok {
			x.addCondition(c)
		}
		return true
	}
}

// negated handles Not(e). A negated equality becomes the opposite
// condition when the endpoint can express it. A negated boolean member also matches records where the member
// is missing, which no condition expresses, so it is only verified locally.
func (x *FilterExtractor) negated(e expr.Expr) bool {
	switch e.Kind() {
	case expr.KindAnd, expr.KindOr, expr.KindNot:
		return false
	case expr.KindCompare:
		var op expr.CompareOp
		switch e.Op() {
		case expr.OpEq:
			op = expr.OpNe
		case expr.OpNe:
			op = expr.OpEq
		default:
			return true
		}
		if c, ok := comparison(op, e.Child(0), e.Child(1)); ok {
			x.addCondition(c)
		}
	}
	return true
}

func (x *FilterExtractor) addCondition(c remotequery.Condition) {
	for _, existing := range x.conditions {
		if existing.Property == c.Property && existing.Operator == c.Operator && reflect.DeepEqual(existing.Value, c.Value) {
			return
		}
	}
	x.conditions = append(x.conditions, c)
}

func atom(e expr.Expr) (remotequery.Condition, bool) {
	switch e.Kind() {
	case expr.KindCompare:
		return comparison(e.Op(), e.Child(0), e.Child(1))
	case expr.KindContains, expr.KindStartsWith:
		// The endpoint only knows substring matching; a prefix match is
		// narrowed by local verification.
		prop, ok := property(e.Child(0))
		if !ok {
			return remotequery.Condition{}, false
		}
		s, ok := constant(e.Child(1)).(string)
		if !ok || s == "" {
			return remotequery.Condition{}, false
		}
		return remotequery.Condition{Property: prop, Operator: remotequery.Contains, Value: s}, true
	case expr.KindMember:
		prop, ok := property(e)
		if !ok {
			return remotequery.Condition{}, false
		}
		return remotequery.Condition{Property: prop, Operator: remotequery.Equals, Value: true}, true
	}
	return remotequery.Condition{}, false
}

func comparison(op expr.CompareOp, l, r expr.Expr) (remotequery.Condition, bool) {
	prop, ok := property(l)
	value := r
	if !ok {
		prop, ok = property(r)
		value = l
		op = op.Flip()
	}
	if !ok || value.Kind() != expr.KindConst || value.Value() == nil {
		return remotequery.Condition{}, false
	}

	var wire remotequery.Operator
	switch op {
	case expr.OpEq:
		wire = remotequery.Equals
	case expr.OpNe:
		// The endpoint's equality ignores case and truncates times, so its
		// inequality would drop records that differ only in those details.
		if !exactOnWire(value.Value()) {
			return remotequery.Condition{}, false
		}
		wire = remotequery.NotEquals
	case expr.OpGt:
		wire = remotequery.GreaterThan
	case expr.OpLt:
		wire = remotequery.LessThan
	default:
		return remotequery.Condition{}, false
	}

	return remotequery.Condition{Property: prop, Operator: wire, Value: value.Value()}, true
}

// exactOnWire reports whether the serialized form of v compares exactly on
// the endpoint: booleans and numbers.
func exactOnWire(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// property returns the name of a top-level member of the parameter.
func property(e expr.Expr) (string, bool) {
	path, ok := e.Path()
	if !ok || len(path) != 1 {
		return "", false
	}
	return path[0], true
}

func constant(e expr.Expr) any {
	if e.Kind() != expr.KindConst {
		return nil
	}
	return e.Value()
}
