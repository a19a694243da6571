// Package extract derives remote request parameters from a validated chain.
//
// Four independent visitors each produce one slice of the request:
// FilterExtractor the conditions, SortExtractor the sort, ColumnExtractor
// the column set and CountExtractor the skip/take window. Build merges them
// into a Plan, deciding whether server filtering and server paging are
// usable at all.
package extract

import (
	"slices"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/chain"
	"github.com/nrfta/remotequery-go/expr"
)

// Plan describes how one query evaluation is carried out.
type Plan struct {
	Sequence *chain.Sequence

	// Descriptor is the template of every page request.
	Descriptor remotequery.Descriptor

	// Verify is the conjunction of all translatable predicates. Every
	// fetched record is checked against it. Invalid when there is none.
	Verify expr.Expr

	// Skip and Take are the folded literal bounds of the chain.
	Skip int
	Take *int

	// PagerSkip and PagerTarget bound the verified matches the pager
	// collects. A nil target collects every match.
	PagerSkip   int
	PagerTarget *int

	// LocalSort orders the collected matches when the endpoint cannot.
	// LocalSkip and LocalTake are applied after it.
	LocalSort []chain.SortKey
	LocalSkip int
	LocalTake *int

	// Projections are the prefix Project nodes, applied after paging.
	Projections []chain.Node

	// Tail and Terminal run locally over the projected records.
	Tail          []chain.Node
	Terminal      chain.Node
	TerminalLocal bool

	// Empty is set when the chain cannot produce any record. No request is
	// needed.
	Empty bool

	// CountOnly is set for an unfiltered Count, answered by a single count
	// probe.
	CountOnly bool
}

// Residual returns the nodes evaluated locally over the paged records.
func (p *Plan) Residual() []chain.Node {
	nodes := slices.Concat(p.Projections, p.Tail)
	if p.Terminal != nil {
		nodes = append(nodes, p.Terminal)
	}
	return nodes
}

// Build validates the chain ending at leaf and plans its evaluation.
func Build(leaf chain.Node, cfg *remotequery.Config) (*Plan, error) {
	seq, err := chain.Validate(leaf)
	if err != nil {
		return nil, err
	}

	nodes := seq.Prefix
	if seq.Terminal != nil && !seq.TerminalLocal {
		nodes = append(slices.Clone(nodes), seq.Terminal)
	}

	var (
		filters FilterExtractor
		sorts   SortExtractor
		columns ColumnExtractor
		counts  CountExtractor
	)
	for _, v := range []chain.Visitor{&filters, &sorts, &columns, &counts} {
		if err := chain.Walk(nodes, v); err != nil {
			return nil, err
		}
	}

	p := &Plan{
		Sequence:      seq,
		Verify:        filters.Verify(),
		Skip:          counts.Skip(),
		Take:          counts.Take(),
		Tail:          seq.Tail,
		Terminal:      seq.Terminal,
		TerminalLocal: seq.TerminalLocal,
	}
	for _, n := range seq.Prefix {
		if n.Kind() == chain.KindProject {
			p.Projections = append(p.Projections, n)
		}
	}

	localSort := sorts.Local()
	if counts.LimitOne() && len(seq.Tail) == 0 && !localSort {
		one := 1
		if p.Take == nil || *p.Take > one {
			p.Take = &one
		}
	}

	verify := p.Verify.Valid()
	force := filters.ForceStream() || localSort || seq.ComputedBound
	local := len(seq.Tail) > 0 || seq.TerminalLocal

	keys, fallback := remotequery.DefaultKeyColumns, remotequery.DefaultColumns
	if cfg != nil {
		keys, fallback = cfg.KeyColumns, cfg.DefaultColumns
	}

	p.Descriptor = remotequery.Descriptor{
		Sort:        sorts.Remote(),
		Columns:     columns.Columns(keys, fallback, exposesRecords(seq.Terminal), local),
		Count:       p.Take,
		ForceStream: force,
	}
	if !force {
		p.Descriptor.Conditions = filters.Conditions()
	}

	switch {
	case !verify && !force:
		// The endpoint applies the window exactly.
		p.Descriptor.Start = p.Skip
		p.PagerTarget = p.Take
	case localSort:
		p.LocalSort = sorts.Keys()
		p.LocalSkip = p.Skip
		p.LocalTake = p.Take
	default:
		p.PagerSkip = p.Skip
		p.PagerTarget = p.Take
	}

	p.Empty = p.Take != nil && *p.Take <= 0
	_, isCount := seq.Terminal.(*chain.Count)
	p.CountOnly = isCount && !verify && !local

	return p, nil
}

func exposesRecords(terminal chain.Node) bool {
	if terminal == nil {
		return true
	}
	switch terminal.Kind() {
	case chain.KindFirst, chain.KindLast:
		return true
	default:
		return false
	}
}
