// Package engine evaluates composed queries against a remote collection.
//
// A Query is an immutable chain of operations. Executing it validates the
// chain, derives the remote request parameters, drives the adaptive pager and
// finally runs whatever could not be sent to the endpoint over the fetched
// records. The result is the same as evaluating the chain in memory over the
// whole collection.
//
// Example:
//
//	e := engine.New(fetcher, engine.WithLogger(logger))
//	sensors, err := e.Query().
//	    Where(expr.Member("Status").Eq("Down")).
//	    OrderBy(expr.Member("Name")).
//	    Take(10).
//	    ToSlice(ctx)
package engine

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/chain"
	"github.com/nrfta/remotequery-go/extract"
	"github.com/nrfta/remotequery-go/pager"
)

// StrategyCount is reported when a Count was answered by a single count
// probe.
const StrategyCount = "count"

// Engine executes queries over one remote collection. It is safe for
// concurrent use; every evaluation keeps its own state.
type Engine struct {
	fetcher remotequery.Fetcher
	cfg     *remotequery.Config
	logger  log.Logger
	metrics *pager.Metrics
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	cfg    *remotequery.Config
	logger log.Logger
	reg    prometheus.Registerer
}

func WithConfig(cfg *remotequery.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers the pager metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.reg = reg
	}
}

// New creates an Engine over fetcher.
func New(fetcher remotequery.Fetcher, opts ...Option) *Engine {
	o := &options{
		cfg:    remotequery.NewConfig(),
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	e := &Engine{
		fetcher: fetcher,
		cfg:     o.cfg,
		logger:  o.logger,
	}
	if o.reg != nil {
		e.metrics = pager.NewMetrics(o.reg)
	}
	return e
}

// Query returns a query over the whole collection.
func (e *Engine) Query() Query {
	return Query{engine: e}
}

// run evaluates the chain ending at leaf.
func (e *Engine) run(ctx context.Context, leaf chain.Node) (*remotequery.Result, error) {
	start := time.Now()
	queryID := uuid.NewString()
	logger := log.With(e.logger, "query_id", queryID)

	plan, err := extract.Build(leaf, e.cfg)
	if err != nil {
		level.Debug(logger).Log("msg", "query rejected", "query", raw(leaf), "err", err)
		return nil, err
	}

	d := plan.Descriptor
	sort := "none"
	if d.Sort != nil {
		sort = d.Sort.String()
	}
	level.Debug(logger).Log(
		"msg", "query planned",
		"query", raw(leaf),
		"conditions", len(d.Conditions),
		"sort", sort,
		"columns", len(d.Columns),
		"force_stream", d.ForceStream,
		"verify", plan.Verify.Valid(),
		"residual", len(plan.Residual()),
	)

	meta := remotequery.Metadata{QueryID: queryID}

	if plan.CountOnly && !plan.Empty {
		res, err := e.countOnly(ctx, plan, &meta)
		if err != nil {
			return nil, err
		}
		meta.QueryTimeMs = time.Since(start).Milliseconds()
		res.Metadata = meta
		return res, nil
	}

	var (
		records []remotequery.Record
		total   *int
		more    bool
	)
	if plan.Empty {
		records = []remotequery.Record{}
		meta.Strategy = pager.StrategyEmpty
	} else {
		out, err := e.page(ctx, plan, logger)
		if err != nil {
			return nil, err
		}
		records, total, more = out.Records, out.Total, out.More

		meta.Strategy = out.Strategy
		meta.StreamReason = out.StreamReason
		meta.ItemsExamined = out.Examined
		meta.IterationsUsed = out.Iterations
		meta.CountProbes = out.Probes

		if len(plan.LocalSort) > 0 {
			records = window(chain.SortRecords(records, plan.LocalSort), plan.LocalSkip, plan.LocalTake)
		}
	}

	res, err := chain.Apply(plan.Residual(), records)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate residual operations")
	}

	meta.QueryTimeMs = time.Since(start).Milliseconds()
	res.Metadata = meta
	res.PageInfo = pageInfo(plan, len(res.Records), total, more)

	level.Debug(logger).Log(
		"msg", "query done",
		"strategy", meta.Strategy,
		"returned", len(res.Records),
		"count", res.Count,
		"duration_ms", meta.QueryTimeMs,
	)
	return res, nil
}

func (e *Engine) page(ctx context.Context, plan *extract.Plan, logger log.Logger) (*pager.Outcome, error) {
	job := pager.Job{
		Descriptor: plan.Descriptor,
		Skip:       plan.PagerSkip,
		Target:     plan.PagerTarget,
	}
	if plan.Verify.Valid() {
		verify := plan.Verify
		job.Verify = func(r remotequery.Record) bool { return verify.Test(r) }
	}

	p := pager.New(e.fetcher,
		pager.WithConfig(e.cfg),
		pager.WithLogger(logger),
		pager.WithMetrics(e.metrics),
	)
	return p.Run(ctx, job)
}

// countOnly answers an unfiltered Count from the exact collection size.
func (e *Engine) countOnly(ctx context.Context, plan *extract.Plan, meta *remotequery.Metadata) (*remotequery.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "fetch count")
	}

	total, err := e.fetcher.FetchCount(ctx, plan.Descriptor.Columns)
	if err != nil {
		return nil, errors.Wrap(err, "fetch count")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "fetch count")
	}

	count := max(total-plan.Skip, 0)
	if plan.Take != nil {
		count = min(count, max(*plan.Take, 0))
	}

	meta.Strategy = StrategyCount
	meta.CountProbes = 1

	return &remotequery.Result{
		Count:    count,
		Found:    count > 0,
		PageInfo: remotequery.NewResultPageInfo(0, 0, &count, false),
	}, nil
}

func pageInfo(plan *extract.Plan, returned int, total *int, more bool) remotequery.PageInfo {
	if plan.Empty {
		return remotequery.NewEmptyPageInfo()
	}
	if len(plan.Tail) > 0 {
		// The pager's totals describe the records before the tail ran.
		return remotequery.NewResultPageInfo(plan.Skip, returned, nil, more)
	}
	if total != nil {
		more = plan.Skip+returned < *total
	}
	return remotequery.NewResultPageInfo(plan.Skip, returned, total, more)
}

func window(records []remotequery.Record, skip int, take *int) []remotequery.Record {
	records = records[min(skip, len(records)):]
	if take != nil {
		records = records[:min(max(*take, 0), len(records))]
	}
	return records
}

func raw(leaf chain.Node) string {
	if leaf == nil {
		return "source"
	}
	return leaf.Raw()
}
