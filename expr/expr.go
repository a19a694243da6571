package expr

// Expr is a view of one node in an arena together with its subtree.
// The zero Expr is invalid and stands for "no expression".
type Expr struct {
	arena *Arena
	root  NodeID
}

// Valid reports whether e refers to a node.
func (e Expr) Valid() bool {
	return e.arena != nil && e.root >= 0 && int(e.root) < len(e.arena.nodes)
}

// Arena returns the arena e lives in.
func (e Expr) Arena() *Arena { return e.arena }

// ID returns the index of e's root node.
func (e Expr) ID() NodeID { return e.root }

func (e Expr) node() *Node { return &e.arena.nodes[e.root] }

func (e Expr) Kind() Kind       { return e.node().Kind }
func (e Expr) Op() CompareOp    { return e.node().Op }
func (e Expr) Name() string     { return e.node().Name }
func (e Expr) Value() any       { return e.node().Value }
func (e Expr) NumChildren() int { return len(e.node().Children) }

// Child returns the i-th operand.
func (e Expr) Child(i int) Expr {
	return Expr{arena: e.arena, root: e.node().Children[i]}
}

// Children returns all operands.
func (e Expr) Children() []Expr {
	ids := e.node().Children
	out := make([]Expr, len(ids))
	for i, id := range ids {
		out[i] = Expr{arena: e.arena, root: id}
	}
	return out
}

// Parent returns the enclosing node, if any.
func (e Expr) Parent() (Expr, bool) {
	p := e.node().Parent
	if p == NoNode {
		return Expr{}, false
	}
	return Expr{arena: e.arena, root: p}, true
}

// Detach copies e into an arena of its own.
func (e Expr) Detach() Expr {
	a := &Arena{}
	return Expr{arena: a, root: a.graft(e.arena, e.root)}
}

func build(n Node, operands ...Expr) Expr {
	a := &Arena{}
	ids := make([]NodeID, len(operands))
	for i, op := range operands {
		ids[i] = a.graft(op.arena, op.root)
	}
	n.Children = ids
	return Expr{arena: a, root: a.push(n)}
}

// lift turns a Go value into a constant unless it already is an Expr.
func lift(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Const(v)
}

// Param is the lambda parameter: the element being tested or projected.
func Param() Expr {
	return build(Node{Kind: KindParam})
}

// Member accesses a property path on the parameter, e.g. Member("Parent", "Name").
func Member(path ...string) Expr {
	e := Param()
	for _, name := range path {
		e = MemberOf(e, name)
	}
	return e
}

// MemberOf accesses a property of src.
func MemberOf(src Expr, name string) Expr {
	return build(Node{Kind: KindMember, Name: name}, src)
}

// Const is a literal value.
func Const(v any) Expr {
	return build(Node{Kind: KindConst, Value: v})
}

func compare(op CompareOp, l, r Expr) Expr {
	return build(Node{Kind: KindCompare, Op: op}, l, r)
}

func Equals(l, r Expr) Expr         { return compare(OpEq, l, r) }
func NotEquals(l, r Expr) Expr      { return compare(OpNe, l, r) }
func GreaterThan(l, r Expr) Expr    { return compare(OpGt, l, r) }
func LessThan(l, r Expr) Expr       { return compare(OpLt, l, r) }
func GreaterOrEqual(l, r Expr) Expr { return compare(OpGe, l, r) }
func LessOrEqual(l, r Expr) Expr    { return compare(OpLe, l, r) }

// Contains is an ordinal, case-sensitive substring test.
func Contains(s, substr Expr) Expr {
	return build(Node{Kind: KindContains}, s, substr)
}

// StartsWith is an ordinal, case-sensitive prefix test.
func StartsWith(s, prefix Expr) Expr {
	return build(Node{Kind: KindStartsWith}, s, prefix)
}

// And combines operands left-associatively.
func And(l, r Expr, more ...Expr) Expr {
	e := build(Node{Kind: KindAnd}, l, r)
	for _, m := range more {
		e = build(Node{Kind: KindAnd}, e, m)
	}
	return e
}

// Or combines operands left-associatively.
func Or(l, r Expr, more ...Expr) Expr {
	e := build(Node{Kind: KindOr}, l, r)
	for _, m := range more {
		e = build(Node{Kind: KindOr}, e, m)
	}
	return e
}

func Not(e Expr) Expr {
	return build(Node{Kind: KindNot}, e)
}

// Call is an opaque function over evaluated arguments. The engine can only
// evaluate it locally.
func Call(name string, fn func(args []any) any, args ...Expr) Expr {
	return build(Node{Kind: KindCall, Name: name, Fn: fn}, args...)
}

// Fluent helpers. Arguments that are not an Expr become constants.

func (e Expr) Dot(name string) Expr          { return MemberOf(e, name) }
func (e Expr) Eq(v any) Expr                 { return Equals(e, lift(v)) }
func (e Expr) Ne(v any) Expr                 { return NotEquals(e, lift(v)) }
func (e Expr) Gt(v any) Expr                 { return GreaterThan(e, lift(v)) }
func (e Expr) Lt(v any) Expr                 { return LessThan(e, lift(v)) }
func (e Expr) Ge(v any) Expr                 { return GreaterOrEqual(e, lift(v)) }
func (e Expr) Le(v any) Expr                 { return LessOrEqual(e, lift(v)) }
func (e Expr) Contains(v any) Expr           { return Contains(e, lift(v)) }
func (e Expr) StartsWith(v any) Expr         { return StartsWith(e, lift(v)) }
func (e Expr) And(o Expr, more ...Expr) Expr { return And(e, o, more...) }
func (e Expr) Or(o Expr, more ...Expr) Expr  { return Or(e, o, more...) }
func (e Expr) Not() Expr                     { return Not(e) }
