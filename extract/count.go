package extract

import "github.com/nrfta/remotequery-go/chain"

// CountExtractor folds the literal Skip and Take operations of a chain into
// a single window:
//
//	Skip(a).Skip(b)  == Skip(a+b)
//	Take(a).Take(b)  == Take(min(a, b))
//	Take(t).Skip(s)  == Skip(s).Take(max(t-s, 0))
type CountExtractor struct {
	chain.BaseVisitor

	skip     int
	take     *int
	limitOne bool
}

func (x *CountExtractor) VisitSkip(n *chain.Skip) error {
	x.skip += n.Count
	if x.take != nil {
		t := max(*x.take-n.Count, 0)
		x.take = &t
	}
	return nil
}

func (x *CountExtractor) VisitTake(n *chain.Take) error {
	if x.take == nil || n.Count < *x.take {
		t := n.Count
		x.take = &t
	}
	return nil
}

func (x *CountExtractor) VisitAny(*chain.Any) error {
	x.limitOne = true
	return nil
}

func (x *CountExtractor) VisitFirst(*chain.First) error {
	x.limitOne = true
	return nil
}

// Skip returns the folded start offset.
func (x *CountExtractor) Skip() int {
	return x.skip
}

// Take returns the folded page size, nil when no Take was composed.
func (x *CountExtractor) Take() *int {
	return x.take
}

// LimitOne reports whether the terminal needs at most one element.
func (x *CountExtractor) LimitOne() bool {
	return x.limitOne
}
