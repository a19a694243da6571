package extract

import (
	"slices"

	"github.com/nrfta/remotequery-go/chain"
	"github.com/nrfta/remotequery-go/expr"
)

// ColumnExtractor collects the remote properties a chain reads.
type ColumnExtractor struct {
	chain.BaseVisitor

	props     []string
	whole     bool
	ambiguous bool
	projected bool
}

func (x *ColumnExtractor) read(e expr.Expr) {
	if !e.Valid() {
		return
	}
	props, whole := e.Properties()
	x.props = append(x.props, props...)
	x.whole = x.whole || whole
}

func (x *ColumnExtractor) VisitFilter(n *chain.Filter) error {
	x.read(n.Resolved)
	return nil
}

func (x *ColumnExtractor) VisitProject(n *chain.Project) error {
	x.projected = true
	shape := n.Shape()
	x.ambiguous = x.ambiguous || shape.Ambiguous()
	for _, f := range shape.Fields() {
		x.read(f.Value)
	}
	return nil
}

func (x *ColumnExtractor) VisitSort(n *chain.Sort) error {
	x.read(n.Resolved)
	return nil
}

func (x *ColumnExtractor) visitTerminal(p chain.Predicate) error {
	if p.Present() && p.Resolvable {
		x.read(p.Resolved)
	}
	return nil
}

func (x *ColumnExtractor) VisitCount(n *chain.Count) error { return x.visitTerminal(n.Predicate) }
func (x *ColumnExtractor) VisitAny(n *chain.Any) error     { return x.visitTerminal(n.Predicate) }
func (x *ColumnExtractor) VisitFirst(n *chain.First) error { return x.visitTerminal(n.Predicate) }
func (x *ColumnExtractor) VisitLast(n *chain.Last) error   { return x.visitTerminal(n.Predicate) }

// Referenced returns the properties read so far, sorted and without
// duplicates.
func (x *ColumnExtractor) Referenced() []string {
	props := slices.Clone(x.props)
	slices.Sort(props)
	return slices.Compact(props)
}

// Columns returns the column set to request. keys are always included.
// fallback is added when the records handed back to the caller are not
// fully described by the chain: no projection was applied, a whole record
// was captured, or some projected member is not traceable. exposed is false
// for chains that only produce a count or a boolean.
func (x *ColumnExtractor) Columns(keys, fallback []string, exposed, local bool) []string {
	cols := append(x.Referenced(), keys...)
	if local || x.whole || x.ambiguous || (exposed && !x.projected) {
		cols = append(cols, fallback...)
	}
	slices.Sort(cols)
	return slices.Compact(cols)
}
