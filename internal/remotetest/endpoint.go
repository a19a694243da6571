// Package remotetest provides an in-memory remote endpoint for tests.
package remotetest

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/expr"
)

// Endpoint is an in-memory remote collection. Like the monitored endpoint
// it filters coarsely: Equals, NotEquals and Contains ignore case.
type Endpoint struct {
	Records []remotequery.Record

	// FilteredLimit truncates the filtered view, and its reported total,
	// to the first n matches. It simulates an undercounting endpoint.
	FilteredLimit int

	// FilteredTotal, when positive, replaces the total reported for
	// filtered requests.
	FilteredTotal int

	// BeforePage runs before every page request. A non-nil error is
	// returned to the caller.
	BeforePage func(ctx context.Context, req remotequery.Request) error

	// CountErr is returned by FetchCount.
	CountErr error

	mu       sync.Mutex
	requests []remotequery.Request
	counts   int
}

var _ remotequery.Fetcher = (*Endpoint)(nil)

// New returns an endpoint serving records.
func New(records []remotequery.Record) *Endpoint {
	return &Endpoint{Records: records}
}

func (e *Endpoint) FetchPage(ctx context.Context, req remotequery.Request) (remotequery.PageResult, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if e.BeforePage != nil {
		if err := e.BeforePage(ctx, req); err != nil {
			return remotequery.PageResult{}, err
		}
	}

	view := e.view(req)
	total := len(view)
	if req.Filtered() && e.FilteredTotal > 0 {
		total = e.FilteredTotal
	}

	start := min(req.Start, len(view))
	end := len(view)
	if req.Count > 0 {
		end = min(start+req.Count, len(view))
	}

	return remotequery.PageResult{
		Records:       slices.Clone(view[start:end]),
		ReportedTotal: total,
	}, nil
}

func (e *Endpoint) FetchCount(ctx context.Context, columns []string) (int, error) {
	e.mu.Lock()
	e.counts++
	e.mu.Unlock()

	if e.CountErr != nil {
		return 0, e.CountErr
	}
	return len(e.Records), nil
}

// Requests returns every page request received so far.
func (e *Endpoint) Requests() []remotequery.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.requests)
}

// CountCalls returns the number of FetchCount calls.
func (e *Endpoint) CountCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts
}

// Reset forgets recorded calls.
func (e *Endpoint) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = nil
	e.counts = 0
}

func (e *Endpoint) view(req remotequery.Request) []remotequery.Record {
	var view []remotequery.Record
	for _, rec := range e.Records {
		if matchesAll(rec, req.Conditions) {
			view = append(view, rec)
		}
	}
	if req.Filtered() && e.FilteredLimit > 0 && len(view) > e.FilteredLimit {
		view = view[:e.FilteredLimit]
	}

	if req.Sort != nil {
		prop, desc := req.Sort.Property, req.Sort.Desc
		slices.SortStableFunc(view, func(a, b remotequery.Record) int {
			c := expr.Compare(a[prop], b[prop])
			if desc {
				return -c
			}
			return c
		})
	}
	return view
}

func matchesAll(rec remotequery.Record, conds []remotequery.Condition) bool {
	for _, c := range conds {
		if !matches(rec[c.Property], c) {
			return false
		}
	}
	return true
}

func matches(v any, c remotequery.Condition) bool {
	got := serialize(v)
	want := c.SerializedValue()

	switch c.Operator {
	case remotequery.Equals:
		return strings.EqualFold(got, want)
	case remotequery.NotEquals:
		return !strings.EqualFold(got, want)
	case remotequery.Contains:
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	case remotequery.GreaterThan:
		return v != nil && expr.Compare(v, c.Value) > 0
	case remotequery.LessThan:
		return v != nil && expr.Compare(v, c.Value) < 0
	default:
		return false
	}
}

func serialize(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
