package pager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the requests a Pager sends and how often it falls back to
// streaming. A nil *Metrics records nothing.
type Metrics struct {
	pagesRequested  prometheus.Counter
	countProbes     prometheus.Counter
	recordsExamined prometheus.Counter
	streamFallbacks *prometheus.CounterVec
}

// NewMetrics creates the pager metrics and registers them with reg. A nil
// registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		pagesRequested: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "remotequery",
			Name:      "pages_requested_total",
			Help:      "Total number of page requests sent to the remote endpoint.",
		}),
		countProbes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "remotequery",
			Name:      "count_probes_total",
			Help:      "Total number of unfiltered count probes sent to the remote endpoint.",
		}),
		recordsExamined: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "remotequery",
			Name:      "records_examined_total",
			Help:      "Total number of records received and verified locally.",
		}),
		streamFallbacks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "remotequery",
			Name:      "stream_fallbacks_total",
			Help:      "Total number of evaluations that fell back to streaming, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) pageRequested() {
	if m != nil {
		m.pagesRequested.Inc()
	}
}

func (m *Metrics) countProbed() {
	if m != nil {
		m.countProbes.Inc()
	}
}

func (m *Metrics) examined(n int) {
	if m != nil {
		m.recordsExamined.Add(float64(n))
	}
}

func (m *Metrics) fellBack(reason string) {
	if m != nil {
		m.streamFallbacks.WithLabelValues(reason).Inc()
	}
}
