package stream

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lingtalk"

const (
	OutcomeCompleted   = "completed"
	OutcomeInterrupted = "interrupted"
	OutcomeEmpty       = "empty"
	OutcomeFailed      = "failed"
)

// Metrics turn level instrumentation. A nil *Metrics records nothing.
type Metrics struct {
	Turns        *prometheus.CounterVec
	Errors       *prometheus.CounterVec
	StageLatency *prometheus.HistogramVec
	BargeIns     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Dialogue turns by outcome.",
		}, []string{"outcome"}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Service failures by kind.",
		}, []string{"kind"}),
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of each turn stage.",
			Buckets:   []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32},
		}, []string{"stage"}),
		BargeIns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barge_ins_total",
			Help:      "Playbacks interrupted by the user speaking.",
		}),
	}
}

func (m *Metrics) turn(outcome string) {
	if m != nil {
		m.Turns.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) failure(kind string) {
	if m != nil {
		m.Errors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) stage(name string, start time.Time) {
	if m != nil {
		m.StageLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
}

// BargeIn counts one interrupted playback.
func (m *Metrics) BargeIn() {
	if m != nil {
		m.BargeIns.Inc()
	}
}
