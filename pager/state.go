package pager

import "github.com/nrfta/remotequery-go"

// state is the stream state of a single job. It never outlives Run.
type state struct {
	job Job

	// want is Skip+Target, or -1 when every match is wanted.
	want int

	matches     []remotequery.Record
	offset      int
	examined    int
	iterations  int
	probes      int
	underfilled int
	sawRejects  bool
	exhausted   bool
	total       *int
	reason      string
}

func newState(job Job) *state {
	want := -1
	if job.Target != nil {
		want = job.Skip + *job.Target
	}
	return &state{job: job, want: want}
}

func (s *state) satisfied() bool {
	return s.want >= 0 && len(s.matches) >= s.want
}

// accept verifies records and keeps the matching ones.
func (s *state) accept(records []remotequery.Record) (verified, rejected int) {
	for _, r := range records {
		if s.job.Verify == nil || s.job.Verify(r) {
			s.matches = append(s.matches, r)
			verified++
		} else {
			rejected++
		}
	}
	s.examined += len(records)
	return verified, rejected
}

func (s *state) outcome() *Outcome {
	records := s.matches[min(s.job.Skip, len(s.matches)):]
	if s.job.Target != nil && len(records) > *s.job.Target {
		records = records[:*s.job.Target]
	}
	if records == nil {
		records = []remotequery.Record{}
	}

	more := !s.exhausted || (s.want >= 0 && len(s.matches) > s.want)

	total := s.total
	if s.job.Verify != nil {
		total = nil
		if s.exhausted {
			n := len(s.matches)
			total = &n
		}
	}

	strategy := StrategyPaged
	if s.reason != "" {
		strategy = StrategyStream
	}

	return &Outcome{
		Records:      records,
		More:         more,
		Total:        total,
		Strategy:     strategy,
		StreamReason: s.reason,
		Examined:     s.examined,
		Iterations:   s.iterations,
		Probes:       s.probes,
	}
}
