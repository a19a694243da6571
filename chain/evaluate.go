package chain

import (
	"slices"

	"github.com/friendsofgo/errors"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/expr"
)

// SortKey is one ordering criterion.
type SortKey struct {
	Key  expr.Expr
	Desc bool
}

// SortRecords returns a stably sorted copy of records. Earlier keys take
// precedence over later ones.
func SortRecords(records []remotequery.Record, keys []SortKey) []remotequery.Record {
	type keyed struct {
		rec  remotequery.Record
		vals []any
	}

	rows := make([]keyed, len(records))
	for i, rec := range records {
		vals := make([]any, len(keys))
		for j, k := range keys {
			vals[j] = k.Key.Eval(rec)
		}
		rows[i] = keyed{rec: rec, vals: vals}
	}

	slices.SortStableFunc(rows, func(a, b keyed) int {
		for j, k := range keys {
			c := expr.Compare(a.vals[j], b.vals[j])
			if k.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	out := make([]remotequery.Record, len(rows))
	for i, row := range rows {
		out[i] = row.rec
	}
	return out
}

// Evaluate runs the chain ending at leaf entirely in memory over the full
// remote collection. It is the reference the engine's results must match.
func Evaluate(leaf Node, records []remotequery.Record) (*remotequery.Result, error) {
	return Apply(Flatten(leaf), records)
}

// Apply runs nodes in order over records.
func Apply(nodes []Node, records []remotequery.Record) (*remotequery.Result, error) {
	ev := &evaluator{records: records}
	if err := Walk(nodes, ev); err != nil {
		return nil, err
	}
	return ev.result(), nil
}

type evaluator struct {
	records []remotequery.Record

	// Records as they were before the current OrderBy, and the keys of that
	// OrderBy and its ThenBy successors.
	unsorted []remotequery.Record
	keys     []SortKey

	terminal Kind
	count    int
}

func (ev *evaluator) filter(e expr.Expr) []remotequery.Record {
	var out []remotequery.Record
	for _, rec := range ev.records {
		if e.Test(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (ev *evaluator) VisitFilter(n *Filter) error {
	ev.records = ev.filter(n.Expr)
	return nil
}

func (ev *evaluator) VisitProject(n *Project) error {
	out := make([]remotequery.Record, len(ev.records))
	for i, rec := range ev.records {
		projected := make(remotequery.Record, len(n.Fields))
		for _, f := range n.Fields {
			projected[f.Name] = f.Value.Eval(rec)
		}
		out[i] = projected
	}
	ev.records = out
	return nil
}

func (ev *evaluator) VisitSort(n *Sort) error {
	key := SortKey{Key: n.Key, Desc: n.Desc}
	if n.Then {
		ev.keys = append(ev.keys, key)
	} else {
		ev.unsorted = ev.records
		ev.keys = []SortKey{key}
	}
	ev.records = SortRecords(ev.unsorted, ev.keys)
	return nil
}

func (ev *evaluator) VisitSkip(n *Skip) error {
	skip := n.Value()
	if skip < 0 {
		return &remotequery.ArgumentOutOfRangeError{Param: "Skip", Value: skip}
	}
	ev.records = ev.records[min(skip, len(ev.records)):]
	return nil
}

func (ev *evaluator) VisitTake(n *Take) error {
	take := max(n.Value(), 0)
	ev.records = ev.records[:min(take, len(ev.records))]
	return nil
}

func (ev *evaluator) VisitOpaque(n *Opaque) error {
	out, err := n.Fn(slices.Clone(ev.records))
	if err != nil {
		return errors.Wrapf(err, "apply %s", n.Name)
	}
	ev.records = out
	return nil
}

func (ev *evaluator) visitTerminal(k Kind, p Predicate) {
	ev.terminal = k
	if p.Present() {
		ev.records = ev.filter(p.Expr)
	}
	ev.count = len(ev.records)
}

func (ev *evaluator) VisitCount(n *Count) error {
	ev.visitTerminal(KindCount, n.Predicate)
	ev.records = nil
	return nil
}

func (ev *evaluator) VisitAny(n *Any) error {
	ev.visitTerminal(KindAny, n.Predicate)
	ev.records = nil
	return nil
}

func (ev *evaluator) VisitFirst(n *First) error {
	ev.visitTerminal(KindFirst, n.Predicate)
	if len(ev.records) > 0 {
		ev.records = ev.records[:1]
	}
	return nil
}

func (ev *evaluator) VisitLast(n *Last) error {
	ev.visitTerminal(KindLast, n.Predicate)
	if len(ev.records) > 0 {
		ev.records = ev.records[len(ev.records)-1:]
	}
	return nil
}

func (ev *evaluator) result() *remotequery.Result {
	switch ev.terminal {
	case KindCount, KindAny:
		return &remotequery.Result{Count: ev.count, Found: ev.count > 0}
	default:
		records := ev.records
		if records == nil {
			records = []remotequery.Record{}
		}
		return &remotequery.Result{Records: records, Count: len(records), Found: len(records) > 0}
	}
}
