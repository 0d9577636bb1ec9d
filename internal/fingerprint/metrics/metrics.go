// Package metrics exposes Prometheus instrumentation for fingerprint
// correlation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the fingerprint collectors. A nil *Metrics is a no-op so
// tests can pass nil without registering collectors twice.
type Metrics struct {
	matches       *prometheus.CounterVec
	matchDuration prometheus.Histogram
	matchErrors   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_fingerprint_matches_total",
			Help: "Correlation matches found, by rule.",
		}, []string{"rule"}),
		matchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_fingerprint_match_duration_seconds",
			Help:    "Time spent running the correlation rules.",
			Buckets: prometheus.DefBuckets,
		}),
		matchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_fingerprint_match_errors_total",
			Help: "Correlation runs that failed.",
		}),
	}
}

func (m *Metrics) MatchFound(rule string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(rule).Inc()
}

func (m *Metrics) MatchCompleted(d time.Duration) {
	if m == nil {
		return
	}
	m.matchDuration.Observe(d.Seconds())
}

func (m *Metrics) MatchFailed() {
	if m == nil {
		return
	}
	m.matchErrors.Inc()
}
