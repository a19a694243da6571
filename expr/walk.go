package expr

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Walk visits e and its descendants in pre-order. Returning false from fn
// skips the children of the visited node.
func (e Expr) Walk(fn func(Expr) bool) {
	stack := []NodeID{e.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !fn(Expr{arena: e.arena, root: id}) {
			continue
		}

		children := e.arena.nodes[id].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Properties returns the top-level properties of the parameter read by e, in
// first-seen order. whole is true when e captures the parameter itself, e.g.
// passes it to a Call, in which case the read properties cannot be known.
func (e Expr) Properties() (props []string, whole bool) {
	e.Walk(func(n Expr) bool {
		switch n.Kind() {
		case KindParam:
			parent, ok := n.Parent()
			if n.root == e.root || !ok || parent.Kind() != KindMember {
				whole = true
			}
		case KindMember:
			if n.Child(0).Kind() == KindParam && !slices.Contains(props, n.Name()) {
				props = append(props, n.Name())
			}
		}
		return true
	})
	return props, whole
}

// Path returns the member names of a pure member chain on the parameter,
// outermost last. Member("Parent", "Name") yields ["Parent", "Name"].
func (e Expr) Path() ([]string, bool) {
	var path []string
	cur := e
	for cur.Kind() == KindMember {
		path = append(path, cur.Name())
		cur = cur.Child(0)
	}
	if cur.Kind() != KindParam || len(path) == 0 {
		return nil, false
	}
	slices.Reverse(path)
	return path, true
}

// Resolver maps a top-level member of the parameter to the expression it
// was projected from. ok is false when the member cannot be expressed.
type Resolver func(name string) (Expr, bool)

// Substitute rewrites e, written against a projected shape, into an
// expression over the projection's source. It fails when e captures the
// projected element as a whole or reads a member the resolver rejects.
func (e Expr) Substitute(resolve Resolver) (Expr, bool) {
	n := e.node()

	switch n.Kind {
	case KindParam:
		return Expr{}, false

	case KindMember:
		src := e.Child(0)
		if src.Kind() == KindParam {
			return resolve(n.Name)
		}
		s, ok := src.Substitute(resolve)
		if !ok {
			return Expr{}, false
		}
		return MemberOf(s, n.Name), true

	case KindConst:
		return e.Detach(), true
	}

	operands := make([]Expr, len(n.Children))
	for i := range n.Children {
		sub, ok := e.Child(i).Substitute(resolve)
		if !ok {
			return Expr{}, false
		}
		operands[i] = sub
	}
	return build(Node{Kind: n.Kind, Op: n.Op, Name: n.Name, Value: n.Value, Fn: n.Fn}, operands...), true
}

// String renders e canonically, with the parameter named x. Calls render
// by function name only.
func (e Expr) String() string {
	if !e.Valid() {
		return "<nil>"
	}
	var b strings.Builder
	e.arena.render(&b, e.root)
	return b.String()
}

func (a *Arena) render(b *strings.Builder, id NodeID) {
	n := &a.nodes[id]

	switch n.Kind {
	case KindParam:
		b.WriteString("x")
	case KindMember:
		a.render(b, n.Children[0])
		b.WriteByte('.')
		b.WriteString(n.Name)
	case KindConst:
		b.WriteString(literal(n.Value))
	case KindCompare:
		a.binary(b, n, " "+n.Op.String()+" ")
	case KindAnd:
		a.binary(b, n, " && ")
	case KindOr:
		a.binary(b, n, " || ")
	case KindContains, KindStartsWith:
		method := ".Contains("
		if n.Kind == KindStartsWith {
			method = ".StartsWith("
		}
		a.render(b, n.Children[0])
		b.WriteString(method)
		a.render(b, n.Children[1])
		b.WriteByte(')')
	case KindNot:
		b.WriteByte('!')
		a.render(b, n.Children[0])
	case KindCall:
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, child := range n.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			a.render(b, child)
		}
		b.WriteByte(')')
	}
}

func (a *Arena) binary(b *strings.Builder, n *Node, op string) {
	b.WriteByte('(')
	a.render(b, n.Children[0])
	b.WriteString(op)
	a.render(b, n.Children[1])
	b.WriteByte(')')
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
