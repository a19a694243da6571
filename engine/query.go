package engine

import (
	"context"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/chain"
	"github.com/nrfta/remotequery-go/expr"
	"github.com/nrfta/remotequery-go/extract"
	"github.com/nrfta/remotequery-go/offset"
)

// Query is an immutable composed query. Every composition method returns a
// new Query and leaves the receiver untouched, so a Query may be shared and
// extended concurrently.
type Query struct {
	engine *Engine
	node   chain.Node
}

func (q Query) with(n chain.Node) Query {
	return Query{engine: q.engine, node: n}
}

// Node returns the last operation of the query, nil for the whole
// collection.
func (q Query) Node() chain.Node {
	return q.node
}

func (q Query) String() string {
	return raw(q.node)
}

// Where keeps the records matching pred.
func (q Query) Where(pred expr.Expr) Query {
	return q.with(chain.NewFilter(q.node, pred))
}

// Select projects every record onto fields.
func (q Query) Select(fields ...chain.Field) Query {
	return q.with(chain.NewProject(q.node, fields...))
}

func (q Query) OrderBy(key expr.Expr) Query {
	return q.with(chain.NewSort(q.node, key, false, false))
}

func (q Query) OrderByDescending(key expr.Expr) Query {
	return q.with(chain.NewSort(q.node, key, true, false))
}

// ThenBy adds a secondary sort key to the preceding OrderBy.
func (q Query) ThenBy(key expr.Expr) Query {
	return q.with(chain.NewSort(q.node, key, false, true))
}

func (q Query) ThenByDescending(key expr.Expr) Query {
	return q.with(chain.NewSort(q.node, key, true, true))
}

func (q Query) Skip(n int) Query {
	return q.with(chain.NewSkip(q.node, n))
}

func (q Query) Take(n int) Query {
	return q.with(chain.NewTake(q.node, n))
}

// SkipFunc skips a number of records only known at evaluation time. The
// query is then evaluated over the whole collection.
func (q Query) SkipFunc(fn func() int) Query {
	return q.with(chain.NewSkipFunc(q.node, fn))
}

// TakeFunc is the evaluation time form of Take.
func (q Query) TakeFunc(fn func() int) Query {
	return q.with(chain.NewTakeFunc(q.node, fn))
}

// After resumes the query after the end cursor of a previous result.
func (q Query) After(cursor *string) Query {
	return q.Skip(offset.DecodeCursor(cursor))
}

// Apply adds a caller-supplied transformation over the record slice. The
// operations that follow it run locally.
func (q Query) Apply(name string, fn chain.OpaqueFunc) Query {
	return q.with(chain.NewOpaque(q.node, name, fn))
}

// With appends the node returned by build, which receives the current last
// operation as its source.
func (q Query) With(build func(source chain.Node) chain.Node) Query {
	return q.with(build(q.node))
}

// Plan returns how the query would be evaluated, without contacting the
// endpoint.
func (q Query) Plan() (*extract.Plan, error) {
	return extract.Build(q.node, q.engine.cfg)
}

// Execute evaluates the query and returns the matched records.
func (q Query) Execute(ctx context.Context) (*remotequery.Result, error) {
	return q.engine.run(ctx, q.node)
}

// ToSlice evaluates the query and returns only the records.
func (q Query) ToSlice(ctx context.Context) ([]remotequery.Record, error) {
	res, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// AsyncResult is delivered by ExecuteAsync.
type AsyncResult struct {
	Result *remotequery.Result
	Err    error
}

// ExecuteAsync evaluates the query on a new goroutine. The channel receives
// exactly one AsyncResult and is then closed. Cancel ctx to abort.
func (q Query) ExecuteAsync(ctx context.Context) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		defer close(ch)
		res, err := q.Execute(ctx)
		ch <- AsyncResult{Result: res, Err: err}
	}()
	return ch
}

// Count returns the number of records matching all of preds.
func (q Query) Count(ctx context.Context, preds ...expr.Expr) (int, error) {
	res, err := q.engine.run(ctx, chain.NewCount(q.node, conjunction(preds)))
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Any reports whether any record matches all of preds.
func (q Query) Any(ctx context.Context, preds ...expr.Expr) (bool, error) {
	res, err := q.engine.run(ctx, chain.NewAny(q.node, conjunction(preds)))
	if err != nil {
		return false, err
	}
	return res.Found, nil
}

// First returns the first record matching all of preds, or
// ErrSequenceEmpty.
func (q Query) First(ctx context.Context, preds ...expr.Expr) (remotequery.Record, error) {
	return q.single(ctx, chain.NewFirst(q.node, conjunction(preds)))
}

// Last returns the last record matching all of preds, or ErrSequenceEmpty.
func (q Query) Last(ctx context.Context, preds ...expr.Expr) (remotequery.Record, error) {
	return q.single(ctx, chain.NewLast(q.node, conjunction(preds)))
}

func (q Query) single(ctx context.Context, leaf chain.Node) (remotequery.Record, error) {
	res, err := q.engine.run(ctx, leaf)
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, remotequery.ErrSequenceEmpty
	}
	return res.Records[0], nil
}

func conjunction(preds []expr.Expr) expr.Expr {
	switch len(preds) {
	case 0:
		return chain.NoPredicate
	case 1:
		return preds[0]
	default:
		return expr.And(preds[0], preds[1], preds[2:]...)
	}
}
