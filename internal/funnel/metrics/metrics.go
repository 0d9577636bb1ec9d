// Package metrics exposes Prometheus instrumentation for the funnel.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the funnel collectors. A nil *Metrics is a no-op so tests
// can pass nil without registering collectors twice.
type Metrics struct {
	started   prometheus.Counter
	resumed   prometheus.Counter
	completed prometheus.Counter
	cancelled prometheus.Counter
	answers   prometheus.Counter
	captures  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		started: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_funnel_sessions_started_total",
			Help: "Funnel sessions started.",
		}),
		resumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_funnel_sessions_resumed_total",
			Help: "Funnel sessions resumed after interruption.",
		}),
		completed: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_funnel_sessions_completed_total",
			Help: "Funnel sessions that finished the questionnaire.",
		}),
		cancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_funnel_sessions_cancelled_total",
			Help: "Funnel sessions cancelled by the respondent.",
		}),
		answers: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_funnel_answers_total",
			Help: "Answers checkpointed.",
		}),
		captures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_funnel_media_captures_total",
			Help: "Post-questionnaire media captures, by stage.",
		}, []string{"stage"}),
	}
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
}

func (m *Metrics) SessionResumed() {
	if m == nil {
		return
	}
	m.resumed.Inc()
}

func (m *Metrics) SessionCompleted() {
	if m == nil {
		return
	}
	m.completed.Inc()
}

func (m *Metrics) SessionCancelled() {
	if m == nil {
		return
	}
	m.cancelled.Inc()
}

func (m *Metrics) AnswerSaved() {
	if m == nil {
		return
	}
	m.answers.Inc()
}

func (m *Metrics) MediaCaptured(stage string) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(stage).Inc()
}
