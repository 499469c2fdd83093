package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer used by Producer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON or raw payloads to Kafka.
type Producer struct {
	writer Writer
	comp   string
}

// Message represents a Kafka message.
type Message struct {
	Key     []byte
	Value   any
	Headers map[string]string
}

// ProducerOption tunes the writer behind a Producer.
type ProducerOption func(*producerSettings)

// producerSettings defaults suit small keyed signal batches: every replica
// acknowledges, messages hash by symbol and a batch lingers only briefly.
type producerSettings struct {
	brokers      []string
	requiredAcks int
	compression  string
	maxAttempts  int
	writeTimeout time.Duration
	readTimeout  time.Duration
	batchSize    int
	batchBytes   int
	linger       time.Duration
	hashByKey    bool
}

func newProducerSettings(opts ...ProducerOption) producerSettings {
	s := producerSettings{
		requiredAcks: -1,
		compression:  "snappy",
		maxAttempts:  3,
		writeTimeout: 10 * time.Second,
		readTimeout:  10 * time.Second,
		batchSize:    100,
		batchBytes:   1 << 20,
		linger:       50 * time.Millisecond,
		hashByKey:    true,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func WithBrokers(brokers []string) ProducerOption {
	return func(s *producerSettings) { s.brokers = brokers }
}

// WithCompression accepts gzip, snappy, lz4, zstd or none.
func WithCompression(compression string) ProducerOption {
	return func(s *producerSettings) {
		if compression != "" {
			s.compression = compression
		}
	}
}

// WithRequiredAcks sets required acknowledgements (-1 = all).
func WithRequiredAcks(acks int) ProducerOption {
	return func(s *producerSettings) { s.requiredAcks = acks }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(s *producerSettings) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithBatch bounds a write by message count, bytes and linger time.
func WithBatch(size, bytes int, linger time.Duration) ProducerOption {
	return func(s *producerSettings) {
		if size > 0 {
			s.batchSize = size
		}
		if bytes > 0 {
			s.batchBytes = bytes
		}
		if linger > 0 {
			s.linger = linger
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(s *producerSettings) {
		if write > 0 {
			s.writeTimeout = write
		}
		if read > 0 {
			s.readTimeout = read
		}
	}
}

// WithHashByKey keeps all signals of one symbol on one partition. On by default.
func WithHashByKey(hash bool) ProducerOption {
	return func(s *producerSettings) { s.hashByKey = hash }
}

// NewProducer creates a synchronous Kafka producer. Publish returns once the
// batch is acknowledged.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := newProducerSettings(opts...)
	if len(cfg.brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	bal := kafka.Balancer(&kafka.LeastBytes{})
	if cfg.hashByKey {
		bal = &kafka.Hash{}
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.brokers...),
		Balancer:     bal,
		RequiredAcks: kafka.RequiredAcks(cfg.requiredAcks),
		Compression:  parseCompression(cfg.compression),
		MaxAttempts:  cfg.maxAttempts,
		WriteTimeout: cfg.writeTimeout,
		ReadTimeout:  cfg.readTimeout,
		BatchSize:    cfg.batchSize,
		BatchBytes:   int64(cfg.batchBytes),
		BatchTimeout: cfg.linger,
	}

	return NewProducerWithWriter(writer, cfg.compression), nil
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(w Writer, compression string) *Producer {
	initProducerMetrics()
	return &Producer{writer: w, comp: compression}
}

// Publish sends a single message to the topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value any) error {
	return p.PublishBatch(ctx, topic, []Message{{Key: key, Value: value}})
}

// PublishBatch sends multiple messages to the topic in one write.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	msgs := make([]kafka.Message, 0, len(messages))
	var totalBytes int64
	for _, m := range messages {
		v, err := encodeValue(m.Value)
		if err != nil {
			return err
		}
		km := kafka.Message{Topic: topic, Key: m.Key, Value: v, Time: start}
		for k, hv := range m.Headers {
			km.Headers = append(km.Headers, kafka.Header{Key: k, Value: []byte(hv)})
		}
		msgs = append(msgs, km)
		totalBytes += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	observeProducerMetrics(topic, p.comp, totalBytes, len(messages), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func encodeValue(value any) ([]byte, error) {
	switch val := value.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		v, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return v, nil
	}
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

var (
	producerMetricsOnce sync.Once
	producerMsgsTotal   *prometheus.CounterVec
	producerErrsTotal   *prometheus.CounterVec
	producerBytesTotal  *prometheus.CounterVec
	producerLatencyHist *prometheus.HistogramVec
)

func initProducerMetrics() {
	producerMetricsOnce.Do(func() {
		producerMsgsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_kafka_producer_messages_total",
				Help: "Total messages published to Kafka",
			},
			[]string{"topic", "compression", "result"},
		)
		producerErrsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_kafka_producer_errors_total",
				Help: "Total producer errors",
			},
			[]string{"topic"},
		)
		producerBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_kafka_producer_bytes_total",
				Help: "Total payload bytes published",
			},
			[]string{"topic", "compression"},
		)
		producerLatencyHist = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaldesk_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

func observeProducerMetrics(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		producerErrsTotal.WithLabelValues(topic).Inc()
	}
	producerMsgsTotal.WithLabelValues(topic, comp, result).Add(float64(count))
	producerBytesTotal.WithLabelValues(topic, comp).Add(float64(bytes))
	producerLatencyHist.WithLabelValues(topic).Observe(dur.Seconds())
}
