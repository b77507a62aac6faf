package evaluation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Metrics are the pipeline's Prometheus collectors
type Metrics struct {
	evaluations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	scores      *prometheus.HistogramVec
}

// NewMetrics registers the pipeline collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrisentinel",
			Name:      "evaluations_total",
			Help:      "Evaluations run, by domain and outcome.",
		}, []string{"domain", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agrisentinel",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of one evaluation including data fetch and persistence.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"domain"}),
		scores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agrisentinel",
			Name:      "composite_score",
			Help:      "Distribution of composite scores.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}, []string{"domain"}),
	}
}

func (m *Metrics) observe(domainKey, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(domainKey, outcome).Inc()
	m.duration.WithLabelValues(domainKey).Observe(elapsed.Seconds())
}

func (m *Metrics) observeScore(domainKey string, score float64) {
	if m == nil {
		return
	}
	m.scores.WithLabelValues(domainKey).Observe(score)
}
