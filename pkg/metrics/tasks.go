package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Deferred task outcomes.
const (
	TaskOutcomeDone    = "done"
	TaskOutcomeFailed  = "failed"
	TaskOutcomeDropped = "dropped"
	TaskOutcomeSkipped = "skipped"
)

// TaskMetrics records deferred task execution.
type TaskMetrics struct {
	outcomes *prometheus.CounterVec
	lag      *prometheus.HistogramVec
}

// NewTaskMetrics registers the deferred task metrics on the provided registerer.
func NewTaskMetrics(reg prometheus.Registerer) *TaskMetrics {
	if reg == nil {
		return &TaskMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deferred_task_outcomes_total",
		Help: "Deferred task executions by kind and outcome.",
	}, []string{"kind", "outcome"})
	lag := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deferred_task_start_lag_seconds",
		Help:    "Delay between a task's scheduled run time and its claim.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
	}, []string{"kind"})
	reg.MustRegister(outcomes, lag)
	return &TaskMetrics{outcomes: outcomes, lag: lag}
}

func (m *TaskMetrics) IncOutcome(kind, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func (m *TaskMetrics) ObserveStartLag(kind string, lag time.Duration) {
	if m == nil || m.lag == nil {
		return
	}
	if lag < 0 {
		lag = 0
	}
	m.lag.WithLabelValues(normalizeLabel(kind)).Observe(lag.Seconds())
}
