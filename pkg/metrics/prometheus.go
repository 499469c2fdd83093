package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain/repository.Metrics using Prometheus.
type Recorder struct {
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

var (
	recorderOnce sync.Once
	recorder     *Recorder
)

// New returns the process-wide Prometheus recorder. Collectors are
// registered once, so calling New again returns the same instance.
func New() *Recorder {
	recorderOnce.Do(func() {
		recorder = &Recorder{
			messagesSent: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "signaldesk_messages_sent_total",
					Help: "Total number of records written to a backend",
				},
				[]string{"backend", "symbol"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "signaldesk_errors_total",
					Help: "Total number of errors encountered",
				},
				[]string{"type"},
			),
			lastPrice: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "signaldesk_last_price",
					Help: "Last ingested close for a symbol",
				},
				[]string{"symbol"},
			),
			latency: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "signaldesk_operation_duration_seconds",
					Help:    "Duration of storage and source operations in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
		}
	})
	return recorder
}

func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
