package chain

import "github.com/nrfta/remotequery-go"

// Sequence is a validated chain split into the part that can be translated
// into remote request parameters and the part that must run locally.
type Sequence struct {
	// Nodes is the whole chain, first node first.
	Nodes []Node

	// Prefix holds the leading Filter, Project, Sort, Skip and Take nodes
	// whose expressions all resolve against remote records.
	Prefix []Node

	// Tail holds everything after the first node that cannot be
	// translated. It runs locally over the materialized prefix.
	Tail []Node

	// Terminal is the trailing Count, Any, First or Last node, if any.
	Terminal Node

	// TerminalLocal is set when the terminal's predicate must be evaluated
	// after the tail instead of being verified with the prefix filters.
	TerminalLocal bool

	// ComputedBound is set when the chain holds a Skip or Take whose value
	// is only known at evaluation time.
	ComputedBound bool
}

// Sequencer checks that a chain is an executable combination of operations
// and splits it into a Sequence. A Sequencer holds the state of a single
// validation; create one per query build.
type Sequencer struct {
	seq     *Sequence
	inTail  bool
	bounded bool
	opaque  bool
	sorts   map[*Sort]bool
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Validate runs a fresh Sequencer over the chain ending at leaf.
func Validate(leaf Node) (*Sequence, error) {
	return NewSequencer().Run(leaf)
}

// Run validates the chain ending at leaf.
func (s *Sequencer) Run(leaf Node) (*Sequence, error) {
	nodes := Flatten(leaf)

	*s = Sequencer{
		seq:   &Sequence{Nodes: nodes},
		sorts: map[*Sort]bool{},
	}

	for i, n := range nodes {
		if n.Kind().Terminal() && i != len(nodes)-1 {
			return nil, unsupported(n.Kind(), "must be the last operation")
		}
		if err := n.Accept(s); err != nil {
			return nil, err
		}
	}

	return s.seq, nil
}

func unsupported(k Kind, reason string) error {
	return &remotequery.UnsupportedExpressionError{Kind: k.String(), Reason: reason}
}

func (s *Sequencer) place(n Node) {
	if s.inTail {
		s.seq.Tail = append(s.seq.Tail, n)
		return
	}
	s.seq.Prefix = append(s.seq.Prefix, n)
}

func (s *Sequencer) startTail(n Node) {
	s.inTail = true
	s.place(n)
}

// checkFilterRole rejects a predicate composed after an operation that
// changes which records a remote filter would see.
func (s *Sequencer) checkFilterRole(k Kind) error {
	switch {
	case s.opaque:
		return unsupported(k, "predicate after an opaque operation")
	case s.bounded:
		return unsupported(k, "predicate after Skip or Take")
	}
	return nil
}

func (s *Sequencer) VisitFilter(n *Filter) error {
	if !n.Present() {
		return unsupported(KindFilter, "missing predicate")
	}
	if err := s.checkFilterRole(KindFilter); err != nil {
		return err
	}
	if !n.Resolvable {
		s.startTail(n)
		return nil
	}
	s.place(n)
	return nil
}

func (s *Sequencer) VisitProject(n *Project) error {
	s.place(n)
	return nil
}

func (s *Sequencer) VisitSort(n *Sort) error {
	if s.bounded {
		return unsupported(KindSort, "sort after Skip or Take")
	}

	if n.Then {
		primary, ok := n.Source().(*Sort)
		if !ok {
			return unsupported(KindSort, "ThenBy must directly follow OrderBy or ThenBy")
		}
		if s.sorts[primary] && !n.Resolvable {
			return unsupported(KindSort, "ThenBy key cannot be resolved against the remote collection")
		}
	}

	if !n.Resolvable {
		s.startTail(n)
		return nil
	}
	if !s.inTail {
		s.sorts[n] = true
	}
	s.place(n)
	return nil
}

func (s *Sequencer) visitBound(n Node, b bound) error {
	if !b.Literal() {
		s.bounded = true
		s.seq.ComputedBound = true
		s.startTail(n)
		return nil
	}
	s.bounded = true
	s.place(n)
	return nil
}

func (s *Sequencer) VisitSkip(n *Skip) error {
	if n.Literal() && n.Count < 0 {
		return &remotequery.ArgumentOutOfRangeError{Param: "Skip", Value: n.Count}
	}
	return s.visitBound(n, n.bound)
}

func (s *Sequencer) VisitTake(n *Take) error {
	return s.visitBound(n, n.bound)
}

func (s *Sequencer) VisitOpaque(n *Opaque) error {
	s.opaque = true
	s.startTail(n)
	return nil
}

func (s *Sequencer) visitTerminal(n Node, p Predicate) error {
	s.seq.Terminal = n
	if !p.Present() {
		return nil
	}
	if err := s.checkFilterRole(n.Kind()); err != nil {
		return err
	}
	s.seq.TerminalLocal = s.inTail || !p.Resolvable
	return nil
}

func (s *Sequencer) VisitCount(n *Count) error { return s.visitTerminal(n, n.Predicate) }
func (s *Sequencer) VisitAny(n *Any) error     { return s.visitTerminal(n, n.Predicate) }
func (s *Sequencer) VisitFirst(n *First) error { return s.visitTerminal(n, n.Predicate) }
func (s *Sequencer) VisitLast(n *Last) error   { return s.visitTerminal(n, n.Predicate) }
