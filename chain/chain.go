// Package chain models a composed query as a singly linked list of typed
// operation nodes.
//
// Every node points at its source, the operation it was composed onto; the
// first node's source is nil and stands for the remote collection itself.
// Nodes are immutable. Composing a query never modifies an existing node, so
// a partially built query can be shared and extended independently:
//
//	base := chain.NewFilter(nil, expr.Member("Name").Contains("ping"))
//	firstTen := chain.NewTake(base, 10)
//	count := chain.NewCount(base, chain.NoPredicate)
//
// Operations are dispatched through Visitor (see visitor.go). Legality of a
// chain is checked by a Sequencer before any request parameter is derived.
package chain

import (
	"strconv"
	"strings"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/expr"
)

// Kind identifies the operation a Node performs.
type Kind uint8

const (
	KindFilter Kind = iota + 1
	KindProject
	KindSort
	KindSkip
	KindTake
	KindCount
	KindAny
	KindFirst
	KindLast
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindFilter:
		return "Filter"
	case KindProject:
		return "Project"
	case KindSort:
		return "Sort"
	case KindSkip:
		return "Skip"
	case KindTake:
		return "Take"
	case KindCount:
		return "Count"
	case KindAny:
		return "Any"
	case KindFirst:
		return "First"
	case KindLast:
		return "Last"
	case KindOpaque:
		return "Opaque"
	default:
		return "Unknown"
	}
}

// Terminal reports whether k ends a chain with a scalar or single result.
func (k Kind) Terminal() bool {
	switch k {
	case KindCount, KindAny, KindFirst, KindLast:
		return true
	default:
		return false
	}
}

// Node is one operation of a composed query.
type Node interface {
	Kind() Kind

	// Source is the operation this node was composed onto, nil for the first.
	Source() Node

	// Raw is the canonical rendering of the call chain up to and including
	// this node. Function calls and opaque operations render by name only,
	// so chains that differ just in the function behind a name have equal
	// Raw.
	Raw() string

	// Shape describes the records this node produces in terms of the
	// records of the remote collection.
	Shape() *Shape

	Accept(v Visitor) error

	// Reduce returns this operation composed onto source, for callers that
	// rewrite chains. It returns the node itself when source is unchanged.
	Reduce(source Node) Node
}

const rootRaw = "source"

type base struct {
	source Node
	raw    string
	shape  *Shape
}

func newBase(source Node, call string) base {
	prefix := rootRaw
	if source != nil {
		prefix = source.Raw()
	}
	return base{
		source: source,
		raw:    prefix + "." + call,
		shape:  shapeOf(source),
	}
}

func (b *base) Source() Node  { return b.source }
func (b *base) Raw() string   { return b.raw }
func (b *base) Shape() *Shape { return b.shape }

func shapeOf(n Node) *Shape {
	if n == nil {
		return nil
	}
	return n.Shape()
}

func lambda(e expr.Expr) string {
	return "x => " + e.String()
}

// Predicate is a boolean expression as written against the source shape,
// together with its rewrite against records of the remote collection.
type Predicate struct {
	// Expr is evaluated against the records flowing into the node.
	Expr expr.Expr

	// Resolved is Expr rewritten onto remote records. Only meaningful when
	// Resolvable is true.
	Resolved   expr.Expr
	Resolvable bool
}

// NoPredicate is passed to terminal operations that take none.
var NoPredicate = expr.Expr{}

// Present reports whether the predicate was given.
func (p Predicate) Present() bool {
	return p.Expr.Valid()
}

func newPredicate(source Node, e expr.Expr) Predicate {
	p := Predicate{Expr: e}
	if e.Valid() {
		p.Resolved, p.Resolvable = shapeOf(source).Resolve(e)
	}
	return p
}

// Filter keeps the records matching its predicate.
type Filter struct {
	base
	Predicate
}

func NewFilter(source Node, pred expr.Expr) *Filter {
	return &Filter{
		base:      newBase(source, "Where("+lambda(pred)+")"),
		Predicate: newPredicate(source, pred),
	}
}

func (n *Filter) Kind() Kind             { return KindFilter }
func (n *Filter) Accept(v Visitor) error { return v.VisitFilter(n) }
func (n *Filter) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return NewFilter(source, n.Expr)
}

// Field is one named member of a projection.
type Field struct {
	Name  string
	Value expr.Expr
}

// As names a projected value.
func As(name string, value expr.Expr) Field {
	return Field{Name: name, Value: value}
}

// Project reshapes every record into a new record holding only Fields.
type Project struct {
	base
	Fields []Field
}

func NewProject(source Node, fields ...Field) *Project {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + " = " + f.Value.String()
	}
	n := &Project{
		base:   newBase(source, "Select(x => new { "+strings.Join(parts, ", ")+" })"),
		Fields: fields,
	}
	n.shape = shapeOf(source).Project(fields)
	return n
}

func (n *Project) Kind() Kind             { return KindProject }
func (n *Project) Accept(v Visitor) error { return v.VisitProject(n) }
func (n *Project) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return NewProject(source, n.Fields...)
}

// Sort orders records by Key. Then marks a secondary key (ThenBy), which
// must directly follow another Sort.
type Sort struct {
	base
	Key        expr.Expr
	Resolved   expr.Expr
	Resolvable bool
	Desc       bool
	Then       bool
}

func NewSort(source Node, key expr.Expr, desc, then bool) *Sort {
	method := "OrderBy"
	if then {
		method = "ThenBy"
	}
	if desc {
		method += "Descending"
	}

	n := &Sort{
		base: newBase(source, method+"("+lambda(key)+")"),
		Key:  key,
		Desc: desc,
		Then: then,
	}
	n.Resolved, n.Resolvable = shapeOf(source).Resolve(key)
	return n
}

func (n *Sort) Kind() Kind             { return KindSort }
func (n *Sort) Accept(v Visitor) error { return v.VisitSort(n) }
func (n *Sort) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return NewSort(source, n.Key, n.Desc, n.Then)
}

// bound is the payload shared by Skip and Take. Func is set for computed
// bounds, which are only known at evaluation time.
type bound struct {
	Count int
	Func  func() int
}

// Literal reports whether the bound is a constant.
func (b bound) Literal() bool {
	return b.Func == nil
}

// Value returns the bound, calling Func for computed bounds.
func (b bound) Value() int {
	if b.Func != nil {
		return b.Func()
	}
	return b.Count
}

func (b bound) render() string {
	if b.Func != nil {
		return "<computed>"
	}
	return strconv.Itoa(b.Count)
}

// Skip bypasses the first Count records.
type Skip struct {
	base
	bound
}

func NewSkip(source Node, count int) *Skip {
	return newSkip(source, bound{Count: count})
}

func NewSkipFunc(source Node, fn func() int) *Skip {
	return newSkip(source, bound{Func: fn})
}

func newSkip(source Node, b bound) *Skip {
	return &Skip{base: newBase(source, "Skip("+b.render()+")"), bound: b}
}

func (n *Skip) Kind() Kind             { return KindSkip }
func (n *Skip) Accept(v Visitor) error { return v.VisitSkip(n) }
func (n *Skip) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return newSkip(source, n.bound)
}

// Take keeps at most Count records. A non-positive count yields nothing.
type Take struct {
	base
	bound
}

func NewTake(source Node, count int) *Take {
	return newTake(source, bound{Count: count})
}

func NewTakeFunc(source Node, fn func() int) *Take {
	return newTake(source, bound{Func: fn})
}

func newTake(source Node, b bound) *Take {
	return &Take{base: newBase(source, "Take("+b.render()+")"), bound: b}
}

func (n *Take) Kind() Kind             { return KindTake }
func (n *Take) Accept(v Visitor) error { return v.VisitTake(n) }
func (n *Take) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return newTake(source, n.bound)
}

func terminalCall(method string, pred expr.Expr) string {
	if !pred.Valid() {
		return method + "()"
	}
	return method + "(" + lambda(pred) + ")"
}

// Count counts the records matching its optional predicate.
type Count struct {
	base
	Predicate
}

func NewCount(source Node, pred expr.Expr) *Count {
	return &Count{base: newBase(source, terminalCall("Count", pred)), Predicate: newPredicate(source, pred)}
}

func (n *Count) Kind() Kind             { return KindCount }
func (n *Count) Accept(v Visitor) error { return v.VisitCount(n) }
func (n *Count) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return NewCount(source, n.Expr)
}

// Any reports whether some record matches its optional predicate.
type Any struct {
	base
	Predicate
}

func NewAny(source Node, pred expr.Expr) *Any {
	return &Any{base: newBase(source, terminalCall("Any", pred)), Predicate: newPredicate(source, pred)}
}

func (n *Any) Kind() Kind             { return KindAny }
func (n *Any) Accept(v Visitor) error { return v.VisitAny(n) }
func (n *Any) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return NewAny(source, n.Expr)
}

// First returns the first record matching its optional predicate.
type First struct {
	base
	Predicate
}

func NewFirst(source Node, pred expr.Expr) *First {
	return &First{base: newBase(source, terminalCall("First", pred)), Predicate: newPredicate(source, pred)}
}

func (n *First) Kind() Kind             { return KindFirst }
func (n *First) Accept(v Visitor) error { return v.VisitFirst(n) }
func (n *First) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return NewFirst(source, n.Expr)
}

// Last returns the last record matching its optional predicate.
type Last struct {
	base
	Predicate
}

func NewLast(source Node, pred expr.Expr) *Last {
	return &Last{base: newBase(source, terminalCall("Last", pred)), Predicate: newPredicate(source, pred)}
}

func (n *Last) Kind() Kind             { return KindLast }
func (n *Last) Accept(v Visitor) error { return v.VisitLast(n) }
func (n *Last) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return NewLast(source, n.Expr)
}

// OpaqueFunc transforms a slice of records in a way the engine cannot
// inspect.
type OpaqueFunc func(records []remotequery.Record) ([]remotequery.Record, error)

// Opaque is a caller supplied operation. Everything composed after it is
// evaluated locally.
type Opaque struct {
	base
	Name string
	Fn   OpaqueFunc
}

func NewOpaque(source Node, name string, fn OpaqueFunc) *Opaque {
	n := &Opaque{
		base: newBase(source, "Apply("+strconv.Quote(name)+")"),
		Name: name,
		Fn:   fn,
	}
	n.shape = opaqueShape
	return n
}

func (n *Opaque) Kind() Kind             { return KindOpaque }
func (n *Opaque) Accept(v Visitor) error { return v.VisitOpaque(n) }
func (n *Opaque) Reduce(source Node) Node {
	if source == n.source {
		return n
	}
	return NewOpaque(source, n.Name, n.Fn)
}

// PredicateOf returns the predicate carried by n, if any. It is defined for
// Filter and the terminal operations.
func PredicateOf(n Node) (Predicate, bool) {
	switch t := n.(type) {
	case *Filter:
		return t.Predicate, true
	case *Count:
		return t.Predicate, t.Present()
	case *Any:
		return t.Predicate, t.Present()
	case *First:
		return t.Predicate, t.Present()
	case *Last:
		return t.Predicate, t.Present()
	default:
		return Predicate{}, false
	}
}

// Flatten returns the nodes of the chain ending at leaf, first node first.
func Flatten(leaf Node) []Node {
	var nodes []Node
	for n := leaf; n != nil; n = n.Source() {
		nodes = append(nodes, n)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes
}
