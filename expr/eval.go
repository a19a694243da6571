package expr

import (
	"cmp"
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/nrfta/remotequery-go"
)

// Eval evaluates e with param bound to the lambda parameter.
func (e Expr) Eval(param any) any {
	return e.arena.eval(e.root, param)
}

// Test evaluates e as a predicate. Non-boolean results are false.
func (e Expr) Test(param any) bool {
	return Truthy(e.Eval(param))
}

func (a *Arena) eval(id NodeID, param any) any {
	n := &a.nodes[id]

	switch n.Kind {
	case KindParam:
		return param
	case KindMember:
		return member(a.eval(n.Children[0], param), n.Name)
	case KindConst:
		return n.Value
	case KindCompare:
		return compareOp(n.Op, a.eval(n.Children[0], param), a.eval(n.Children[1], param))
	case KindContains:
		s, ok1 := asString(a.eval(n.Children[0], param))
		sub, ok2 := asString(a.eval(n.Children[1], param))
		return ok1 && ok2 && strings.Contains(s, sub)
	case KindStartsWith:
		s, ok1 := asString(a.eval(n.Children[0], param))
		prefix, ok2 := asString(a.eval(n.Children[1], param))
		return ok1 && ok2 && strings.HasPrefix(s, prefix)
	case KindAnd:
		return Truthy(a.eval(n.Children[0], param)) && Truthy(a.eval(n.Children[1], param))
	case KindOr:
		return Truthy(a.eval(n.Children[0], param)) || Truthy(a.eval(n.Children[1], param))
	case KindNot:
		return !Truthy(a.eval(n.Children[0], param))
	case KindCall:
		args := make([]any, len(n.Children))
		for i, child := range n.Children {
			args[i] = a.eval(child, param)
		}
		return n.Fn(args)
	}

	return nil
}

func member(v any, name string) any {
	switch rec := v.(type) {
	case remotequery.Record:
		return rec[name]
	case map[string]any:
		return rec[name]
	default:
		return nil
	}
}

// Truthy reports whether v is a boolean true.
func Truthy(v any) bool {
	b, ok := normalize(v).(bool)
	return ok && b
}

// normalize unwraps driver.Valuer values and folds numeric and string kinds
// so that values of different Go types can be compared.
func normalize(v any) any {
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return nil
		}
		v = dv
	}
	if v == nil {
		return nil
	}

	switch x := v.(type) {
	case string, bool, float64, time.Time:
		return x
	case []byte:
		return string(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	}

	return v
}

func asString(v any) (string, bool) {
	s, ok := normalize(v).(string)
	return s, ok
}

// compareValues orders two normalized, non-nil values. ok is false when the
// values are of incomparable types.
func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y), true
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			default:
				return 1, true
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}

func equal(a, b any) bool {
	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

func compareOp(op CompareOp, a, b any) bool {
	switch op {
	case OpEq:
		return equal(a, b)
	case OpNe:
		return !equal(a, b)
	}

	a, b = normalize(a), normalize(b)
	if a == nil || b == nil {
		return false
	}
	c, ok := compareValues(a, b)
	if !ok {
		return false
	}

	switch op {
	case OpGt:
		return c > 0
	case OpLt:
		return c < 0
	case OpGe:
		return c >= 0
	case OpLe:
		return c <= 0
	}
	return false
}

// Compare is a total order over values used for sorting: nil sorts first,
// comparable values compare naturally and anything else falls back to its
// formatted representation.
func Compare(a, b any) int {
	a, b = normalize(a), normalize(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c, ok := compareValues(a, b); ok {
		return c
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
