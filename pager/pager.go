// Package pager drives the page requests of one query evaluation.
//
// The remote endpoint filters coarsely and reports unreliable totals for
// filtered requests, so every record is re-verified locally. The pager
// walks the state machine
//
//	RequestPage -> EvaluatePage -> Done | RequestMore | Streaming
//
// It first asks for exactly the shortfall of verified matches through the
// filtered view. Once that view proves unreliable or too sparse it probes
// the authoritative total with FetchCount and streams the unfiltered
// collection in fixed size chunks, verifying locally, until the target is
// reached or the collection is exhausted.
package pager

import (
	"context"
	"time"

	"github.com/friendsofgo/errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nrfta/remotequery-go"
	"github.com/nrfta/remotequery-go/offset"
)

// Strategy values reported in Outcome.Strategy.
const (
	StrategyEmpty  = "empty"
	StrategyPaged  = "paged"
	StrategyStream = "stream"
)

// Reasons for falling back to streaming.
const (
	// ReasonForced is used when server filtering was ruled out up front.
	ReasonForced = "forced"

	// ReasonSparse is used after too many consecutive under-filled pages.
	ReasonSparse = "sparse"

	// ReasonUnreliable is used when the filtered view ran out while some of
	// its records failed verification, or came back short of its own
	// reported total, so it cannot be trusted.
	ReasonUnreliable = "unreliable"
)

// Job is one logical fetch.
type Job struct {
	Descriptor remotequery.Descriptor

	// Verify reports whether a record really matches. Nil accepts all.
	Verify func(remotequery.Record) bool

	// Skip verified matches are dropped from the front of the result.
	Skip int

	// Target is the number of matches wanted after Skip. Nil wants all.
	Target *int
}

// Outcome is the result of a Job.
type Outcome struct {
	Records []remotequery.Record

	// More reports whether matches beyond Records may exist.
	More bool

	// Total is the exact number of matches before Skip, when known.
	Total *int

	Strategy     string
	StreamReason string
	Examined     int
	Iterations   int
	Probes       int
	Elapsed      time.Duration
}

// Result is delivered by Go.
type Result struct {
	Outcome *Outcome
	Err     error
}

// Pager executes jobs against a Fetcher. A Pager keeps no per-job state and
// may run any number of jobs concurrently.
type Pager struct {
	fetcher            remotequery.Fetcher
	chunkSize          int
	streamThreshold    int
	maxRecordsExamined int
	logger             log.Logger
	metrics            *Metrics
}

// Option configures a Pager.
type Option func(*config)

type config struct {
	chunkSize          int
	streamThreshold    int
	maxRecordsExamined int
	logger             log.Logger
	metrics            *Metrics
}

// WithChunkSize sets the page size used for unbounded and streamed pages.
// Default: 500
func WithChunkSize(n int) Option {
	return func(c *config) {
		c.chunkSize = n
	}
}

// WithStreamThreshold sets how many consecutive under-filled pages trigger
// streaming.
// Default: 2
func WithStreamThreshold(n int) Option {
	return func(c *config) {
		c.streamThreshold = n
	}
}

// WithMaxRecordsExamined aborts a job that would receive more than n
// records. 0 disables the limit.
func WithMaxRecordsExamined(n int) Option {
	return func(c *config) {
		c.maxRecordsExamined = n
	}
}

// WithConfig applies the pager relevant fields of cfg.
func WithConfig(cfg *remotequery.Config) Option {
	return func(c *config) {
		c.chunkSize = cfg.EffectiveChunkSize()
		c.streamThreshold = cfg.EffectiveStreamThreshold()
		if cfg != nil {
			c.maxRecordsExamined = cfg.MaxRecordsExamined
		}
	}
}

// WithLogger sets the logger for page and streaming decisions.
// Default: log.NewNopLogger()
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records requests, probes and fallbacks in m. Nil disables
// metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// New creates a Pager over fetcher.
func New(fetcher remotequery.Fetcher, opts ...Option) *Pager {
	cfg := &config{
		chunkSize:       remotequery.DefaultChunkSize,
		streamThreshold: remotequery.DefaultStreamThreshold,
		logger:          log.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.chunkSize <= 0 {
		cfg.chunkSize = remotequery.DefaultChunkSize
	}
	if cfg.streamThreshold <= 0 {
		cfg.streamThreshold = remotequery.DefaultStreamThreshold
	}

	return &Pager{
		fetcher:            fetcher,
		chunkSize:          cfg.chunkSize,
		streamThreshold:    cfg.streamThreshold,
		maxRecordsExamined: cfg.maxRecordsExamined,
		logger:             cfg.logger,
		metrics:            cfg.metrics,
	}
}

// Run executes job and blocks until it is done. On failure, including
// cancellation of ctx, the partial result is discarded.
func (p *Pager) Run(ctx context.Context, job Job) (*Outcome, error) {
	startTime := time.Now()

	if job.Target != nil && *job.Target <= 0 {
		level.Debug(p.logger).Log("msg", "non-positive target, no request needed", "target", *job.Target)
		return &Outcome{Strategy: StrategyEmpty, Records: []remotequery.Record{}}, nil
	}

	state := newState(job)

	var err error
	if job.Descriptor.ForceStream {
		err = p.stream(ctx, state, ReasonForced, job.Descriptor.Start, false)
	} else {
		err = p.page(ctx, state)
	}
	if err != nil {
		level.Debug(p.logger).Log("msg", "evaluation aborted", "iterations", state.iterations, "err", err)
		return nil, err
	}

	out := state.outcome()
	out.Elapsed = time.Since(startTime)

	level.Debug(p.logger).Log(
		"msg", "evaluation done",
		"strategy", out.Strategy,
		"returned", len(out.Records),
		"examined", out.Examined,
		"iterations", out.Iterations,
		"probes", out.Probes,
		"more", out.More,
	)
	return out, nil
}

// Go executes job on a new goroutine. The channel receives exactly one
// Result and is then closed.
func (p *Pager) Go(ctx context.Context, job Job) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		out, err := p.Run(ctx, job)
		ch <- Result{Outcome: out, Err: err}
	}()
	return ch
}

// page runs the bounded RequestPage/EvaluatePage/RequestMore loop over the
// view described by the job's descriptor.
func (p *Pager) page(ctx context.Context, s *state) error {
	d := s.job.Descriptor
	filtered := d.Filtered()
	s.offset = d.Start

	for !s.satisfied() {
		size := p.chunkSize
		if s.want >= 0 {
			size = s.want - len(s.matches)
		}

		w := offset.At(s.offset, size)
		res, err := p.fetch(ctx, s, d.Page(w.Start, w.Count))
		if err != nil {
			return err
		}

		returned := len(res.Records)
		verified, rejected := s.accept(res.Records)
		next := w.Advance(returned, size)
		s.offset = next.Start

		if rejected > 0 {
			s.sawRejects = true
		}
		if verified < size && (rejected > 0 || returned == 0) {
			s.underfilled++
		} else {
			s.underfilled = 0
		}

		level.Debug(p.logger).Log(
			"msg", "page evaluated",
			"iteration", s.iterations,
			"returned", returned,
			"verified", verified,
			"rejected", rejected,
			"reported_total", res.ReportedTotal,
			"next_start", s.offset,
		)

		if filtered {
			short := returned == 0 || w.Short(returned)
			viewEnded := next.Reached(res.ReportedTotal)
			// A short page below the reported total means the view was cut
			// off, and rejected records mean its total counts the wrong
			// records. Either way only the unfiltered view is authoritative.
			truncated := short && !viewEnded
			if truncated || (s.sawRejects && (short || viewEnded)) {
				if s.satisfied() {
					return nil
				}
				return p.stream(ctx, s, ReasonUnreliable, 0, true)
			}
			if short {
				s.exhausted = true
				return nil
			}
		} else {
			total := res.ReportedTotal
			s.total = &total
			if returned == 0 || next.Reached(total) {
				s.exhausted = true
				return nil
			}
		}

		if s.underfilled >= p.streamThreshold && !s.satisfied() {
			// The unfiltered view is exact, so streaming can continue
			// where paging stopped. A filtered offset means nothing in
			// the unfiltered view.
			if filtered {
				return p.stream(ctx, s, ReasonSparse, 0, true)
			}
			return p.stream(ctx, s, ReasonSparse, s.offset, false)
		}
	}

	return nil
}

// stream walks the unfiltered collection from start in chunks. reset
// discards the matches collected so far.
func (p *Pager) stream(ctx context.Context, s *state, reason string, start int, reset bool) error {
	s.reason = reason
	p.metrics.fellBack(reason)

	total, err := p.probe(ctx, s)
	if err != nil {
		return err
	}

	level.Debug(p.logger).Log(
		"msg", "streaming",
		"reason", reason,
		"start", start,
		"total", total,
		"reset", reset,
		"matches", len(s.matches),
	)

	if reset {
		s.matches = nil
	}
	s.offset = start
	if s.job.Verify == nil {
		s.total = &total
	}

	d := s.job.Descriptor
	for !s.satisfied() {
		w := offset.At(s.offset, p.chunkSize)
		if w.Reached(total) {
			s.exhausted = true
			return nil
		}

		res, err := p.fetch(ctx, s, d.Unfiltered(w.Start, w.Count))
		if err != nil {
			return err
		}

		s.accept(res.Records)
		next := w.Advance(len(res.Records), w.Count)
		s.offset = next.Start

		if len(res.Records) == 0 || next.Reached(total) {
			s.exhausted = true
			return nil
		}
	}

	return nil
}

func (p *Pager) fetch(ctx context.Context, s *state, req remotequery.Request) (remotequery.PageResult, error) {
	iteration := s.iterations + 1

	if err := ctx.Err(); err != nil {
		return remotequery.PageResult{}, errors.Wrapf(err, "fetch page (iteration %d)", iteration)
	}

	if p.maxRecordsExamined > 0 && s.examined+req.Count > p.maxRecordsExamined {
		return remotequery.PageResult{}, errors.Wrapf(remotequery.ErrMaxRecordsExamined,
			"fetch page (iteration %d): %d examined, %d requested, limit %d",
			iteration, s.examined, req.Count, p.maxRecordsExamined)
	}

	s.iterations = iteration
	p.metrics.pageRequested()

	res, err := p.fetcher.FetchPage(ctx, req)
	if err != nil {
		return remotequery.PageResult{}, errors.Wrapf(err, "fetch page (iteration %d)", iteration)
	}
	if err := ctx.Err(); err != nil {
		return remotequery.PageResult{}, errors.Wrapf(err, "fetch page (iteration %d)", iteration)
	}

	p.metrics.examined(len(res.Records))
	return res, nil
}

func (p *Pager) probe(ctx context.Context, s *state) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(err, "fetch count")
	}

	s.probes++
	p.metrics.countProbed()

	total, err := p.fetcher.FetchCount(ctx, s.job.Descriptor.Columns)
	if err != nil {
		return 0, errors.Wrap(err, "fetch count")
	}
	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(err, "fetch count")
	}
	return total, nil
}
