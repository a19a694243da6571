package chain

// Visitor is implemented by every analysis and evaluation pass over a chain.
// Adding a node kind adds a method here, so a pass that forgets to handle it
// stops compiling.
type Visitor interface {
	VisitFilter(n *Filter) error
	VisitProject(n *Project) error
	VisitSort(n *Sort) error
	VisitSkip(n *Skip) error
	VisitTake(n *Take) error
	VisitCount(n *Count) error
	VisitAny(n *Any) error
	VisitFirst(n *First) error
	VisitLast(n *Last) error
	VisitOpaque(n *Opaque) error
}

// BaseVisitor ignores every node. Embed it in passes that only care about
// a few kinds.
type BaseVisitor struct{}

func (BaseVisitor) VisitFilter(*Filter) error   { return nil }
func (BaseVisitor) VisitProject(*Project) error { return nil }
func (BaseVisitor) VisitSort(*Sort) error       { return nil }
func (BaseVisitor) VisitSkip(*Skip) error       { return nil }
func (BaseVisitor) VisitTake(*Take) error       { return nil }
func (BaseVisitor) VisitCount(*Count) error     { return nil }
func (BaseVisitor) VisitAny(*Any) error         { return nil }
func (BaseVisitor) VisitFirst(*First) error     { return nil }
func (BaseVisitor) VisitLast(*Last) error       { return nil }
func (BaseVisitor) VisitOpaque(*Opaque) error   { return nil }

// Walk dispatches every node to v in order and stops at the first error.
func Walk(nodes []Node, v Visitor) error {
	for _, n := range nodes {
		if err := n.Accept(v); err != nil {
			return err
		}
	}
	return nil
}
