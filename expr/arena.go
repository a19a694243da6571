// Package expr models predicate, selector and projection expressions as an
// arena of nodes with explicit parent/child indices.
//
// Nodes are appended to an Arena and never removed. A node's children are
// always added before the node itself, so child indices are strictly smaller
// than their parent's index and an arena can never contain a cycle.
//
// Expressions are immutable values. Combining expressions copies (grafts) the
// operands into a fresh arena:
//
//	pred := expr.And(
//	    expr.Member("Name").Contains("ping"),
//	    expr.Member("Status").Eq("Up"),
//	)
//	pred.Test(remotequery.Record{"Name": "ping-01", "Status": "Up"}) // true
package expr

// NodeID indexes a node within its Arena.
type NodeID int32

// NoNode is the parent of a root node.
const NoNode NodeID = -1

// Kind is the node type.
type Kind uint8

const (
	KindParam Kind = iota
	KindMember
	KindConst
	KindCompare
	KindContains
	KindStartsWith
	KindAnd
	KindOr
	KindNot
	KindCall
)

func (k Kind) String() string {
	switch k {
	case KindParam:
		return "param"
	case KindMember:
		return "member"
	case KindConst:
		return "const"
	case KindCompare:
		return "compare"
	case KindContains:
		return "contains"
	case KindStartsWith:
		return "starts_with"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	case KindNot:
		return "not"
	case KindCall:
		return "call"
	default:
		return "unknown"
	}
}

// CompareOp is the operator of a KindCompare node.
type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNe
	OpGt
	OpLt
	OpGe
	OpLe
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGe:
		return ">="
	case OpLe:
		return "<="
	default:
		return "?"
	}
}

// Flip returns the operator to use when the operands are swapped.
func (op CompareOp) Flip() CompareOp {
	switch op {
	case OpGt:
		return OpLt
	case OpLt:
		return OpGt
	case OpGe:
		return OpLe
	case OpLe:
		return OpGe
	default:
		return op
	}
}

// Node is a single arena entry.
type Node struct {
	Kind Kind
	Op   CompareOp

	// Name is the member name for KindMember and the function name for KindCall.
	Name string

	// Value is the literal of a KindConst node.
	Value any

	// Fn evaluates a KindCall node from its evaluated arguments.
	Fn func(args []any) any

	Parent   NodeID
	Children []NodeID
}

// Arena owns the nodes of one or more expressions.
type Arena struct {
	nodes []Node
}

// Len returns the number of nodes in the arena.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Node returns a copy of the node at id.
func (a *Arena) Node(id NodeID) Node {
	return a.nodes[id]
}

func (a *Arena) push(n Node) NodeID {
	id := NodeID(len(a.nodes))
	n.Parent = NoNode
	for _, child := range n.Children {
		a.nodes[child].Parent = id
	}
	a.nodes = append(a.nodes, n)
	return id
}

// graft copies the subtree rooted at id in src into a and returns the new root.
func (a *Arena) graft(src *Arena, id NodeID) NodeID {
	n := src.nodes[id]
	children := make([]NodeID, len(n.Children))
	for i, child := range n.Children {
		children[i] = a.graft(src, child)
	}
	n.Children = children
	return a.push(n)
}
