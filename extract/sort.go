package extract

import (
	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/chain"
)

// SortExtractor collects the sort keys of a chain in precedence order. The
// endpoint accepts a single key, so only a chain whose ordering reduces to
// one top-level property is sorted remotely. Anything else is sorted
// locally over the full result.
type SortExtractor struct {
	chain.BaseVisitor

	// groups[0] is the most recent OrderBy and the ThenBy keys following it.
	groups [][]chain.SortKey
}

func (x *SortExtractor) VisitSort(n *chain.Sort) error {
	key := chain.SortKey{Key: n.Resolved, Desc: n.Desc}
	if n.Then && len(x.groups) > 0 {
		x.groups[0] = append(x.groups[0], key)
		return nil
	}
	x.groups = append([][]chain.SortKey{{key}}, x.groups...)
	return nil
}

// Keys returns every key, most significant first. A later OrderBy is more
// significant than an earlier one, which only breaks its ties.
func (x *SortExtractor) Keys() []chain.SortKey {
	var keys []chain.SortKey
	for _, g := range x.groups {
		keys = append(keys, g...)
	}
	return keys
}

// Remote returns the sort to send to the endpoint, nil when the chain is
// unsorted or must be sorted locally.
func (x *SortExtractor) Remote() *remotequery.Sort {
	keys := x.Keys()
	if len(keys) != 1 {
		return nil
	}
	prop, ok := property(keys[0].Key)
	if !ok {
		return nil
	}
	return &remotequery.Sort{Property: prop, Desc: keys[0].Desc}
}

// Local reports whether the chain's ordering must be applied locally.
func (x *SortExtractor) Local() bool {
	return len(x.groups) > 0 && x.Remote() == nil
}
