package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"SignalDesk/internal/domain/models"
)

var (
	once sync.Once

	EvaluationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signaldesk",
			Subsystem: "strategy",
			Name:      "evaluation_seconds",
			Help:      "Latency of a single strategy evaluation",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"strategy"},
	)

	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signaldesk",
			Subsystem: "strategy",
			Name:      "signals_total",
			Help:      "Signals produced by strategy and type",
		},
		[]string{"strategy", "signal"},
	)

	FetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signaldesk",
			Subsystem: "data",
			Name:      "fetch_errors_total",
			Help:      "Price series that could not be loaded",
		},
		[]string{"symbol"},
	)

	FilterDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signaldesk",
			Subsystem: "filter",
			Name:      "decisions_total",
			Help:      "Signal filter outcomes by rule",
		},
		[]string{"rule"},
	)
)

// Register adds the collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(EvaluationLatency, SignalsTotal, FetchErrors, FilterDecisions)
	})
}

// Evaluations records strategy activity into the package collectors.
type Evaluations struct{}

// NewEvaluations registers the collectors and returns a recorder.
func NewEvaluations() *Evaluations {
	Register()
	return &Evaluations{}
}

func (Evaluations) RecordEvaluation(strategyID string, signal models.SignalType, took time.Duration) {
	EvaluationLatency.WithLabelValues(strategyID).Observe(took.Seconds())
	SignalsTotal.WithLabelValues(strategyID, string(signal)).Inc()
}

func (Evaluations) RecordFetchError(symbol string) {
	FetchErrors.WithLabelValues(symbol).Inc()
}

func (Evaluations) RecordFilterDecision(rule string) {
	FilterDecisions.WithLabelValues(rule).Inc()
}
