package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgkafka "SignalDesk/pkg/kafka"
	"SignalDesk/pkg/util"
)

// barMessage is the payload on the bars topic. T is a unix timestamp in
// seconds or milliseconds; Date (YYYY-MM-DD) wins when both are set.
type barMessage struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	T      int64   `json:"t"`
	O      float64 `json:"o"`
	H      float64 `json:"h"`
	L      float64 `json:"l"`
	C      float64 `json:"c"`
	V      float64 `json:"v"`
}

// BarIngestHandler consumes daily bars from Kafka and writes them to the bar store.
type BarIngestHandler struct {
	topic   string
	store   domrepo.BarStore
	metrics domrepo.Metrics
}

func NewBarIngestHandler(topic string, store domrepo.BarStore, metrics domrepo.Metrics) *BarIngestHandler {
	return &BarIngestHandler{topic: topic, store: store, metrics: metrics}
}

func (h *BarIngestHandler) Topic() string { return h.topic }

// Handle accepts either a single bar object or an array of bars.
func (h *BarIngestHandler) Handle(ctx context.Context, b []byte) error {
	msgs, err := decodeBars(b)
	if err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}

	bars := make([]models.Candle, 0, len(msgs))
	for _, m := range msgs {
		c, err := m.candle()
		if err != nil {
			h.metrics.RecordError("consumer_invalid_bar")
			return err
		}
		bars = append(bars, c)
	}
	if len(bars) == 0 {
		return nil
	}

	start := time.Now()
	err = h.store.StoreBars(ctx, bars)
	h.metrics.RecordLatency("bar_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	for _, c := range bars {
		h.metrics.RecordMessageSent("clickhouse", c.Symbol)
		h.metrics.RecordLastPrice(c.Symbol, c.Close)
	}
	return nil
}

func decodeBars(b []byte) ([]barMessage, error) {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		var out []barMessage
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("decode bars: %w", err)
		}
		return out, nil
	}
	var m barMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode bar: %w", err)
	}
	return []barMessage{m}, nil
}

func (m barMessage) candle() (models.Candle, error) {
	symbol := strings.ToUpper(strings.TrimSpace(m.Symbol))
	if symbol == "" {
		return models.Candle{}, &models.UnknownSymbolError{Symbol: m.Symbol}
	}

	var date time.Time
	switch {
	case m.Date != "":
		d, err := time.Parse(time.DateOnly, m.Date)
		if err != nil {
			return models.Candle{}, fmt.Errorf("bar %s: parse date: %w", symbol, err)
		}
		date = d
	case m.T > 0:
		date = util.DayFromUnix(m.T)
	default:
		return models.Candle{}, fmt.Errorf("bar %s: missing date", symbol)
	}

	if m.C <= 0 {
		return models.Candle{}, fmt.Errorf("bar %s %s: non-positive close", symbol, date.Format(time.DateOnly))
	}
	c := models.Candle{Date: date, Symbol: symbol, Open: m.O, High: m.H, Low: m.L, Close: m.C, Volume: m.V}
	// Close-only feeds fill the range with the close.
	if c.Open == 0 {
		c.Open = c.Close
	}
	if c.High == 0 {
		c.High = max(c.Open, c.Close)
	}
	if c.Low == 0 {
		c.Low = min(c.Open, c.Close)
	}
	return c, nil
}

var _ pkgkafka.MessageHandler = (*BarIngestHandler)(nil)
