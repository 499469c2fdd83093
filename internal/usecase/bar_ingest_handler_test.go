package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
)

type memBarStore struct {
	bars []models.Candle
	err  error
}

func (s *memBarStore) Init(context.Context) error { return nil }
func (s *memBarStore) StoreBars(_ context.Context, bars []models.Candle) error {
	if s.err != nil {
		return s.err
	}
	s.bars = append(s.bars, bars...)
	return nil
}
func (s *memBarStore) LatestDate(context.Context, string) (time.Time, error) { return time.Time{}, nil }
func (s *memBarStore) Health(context.Context) error                          { return nil }
func (s *memBarStore) Close() error                                          { return nil }

type countingMetrics struct {
	sent   int
	errors map[string]int
	last   map[string]float64
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{errors: map[string]int{}, last: map[string]float64{}}
}

func (m *countingMetrics) RecordMessageSent(string, string)             { m.sent++ }
func (m *countingMetrics) RecordError(kind string)                      { m.errors[kind]++ }
func (m *countingMetrics) RecordLastPrice(symbol string, price float64) { m.last[symbol] = price }
func (m *countingMetrics) RecordLatency(string, float64)                {}

func TestBarIngestHandlerSingleAndBatch(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []models.Candle
	}{
		{
			name:    "single with date",
			payload: `{"symbol":"qqq","date":"2024-06-03","o":440,"h":445,"l":438,"c":443,"v":1000}`,
			want: []models.Candle{{
				Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Symbol: "QQQ",
				Open: 440, High: 445, Low: 438, Close: 443, Volume: 1000,
			}},
		},
		{
			name:    "batch with millisecond timestamps and close only",
			payload: `[{"symbol":"VOO","t":1717372800000,"c":500},{"symbol":"VOO","t":1717459200,"c":505}]`,
			want: []models.Candle{
				{Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Symbol: "VOO", Open: 500, High: 500, Low: 500, Close: 500},
				{Date: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Symbol: "VOO", Open: 505, High: 505, Low: 505, Close: 505},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memBarStore{}
			metrics := newCountingMetrics()
			h := NewBarIngestHandler("bars", store, metrics)

			if err := h.Handle(context.Background(), []byte(tt.payload)); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if len(store.bars) != len(tt.want) {
				t.Fatalf("expected %d bars, got %d", len(tt.want), len(store.bars))
			}
			for i, want := range tt.want {
				got := store.bars[i]
				if !got.Date.Equal(want.Date) || got.Symbol != want.Symbol || got.Open != want.Open ||
					got.High != want.High || got.Low != want.Low || got.Close != want.Close || got.Volume != want.Volume {
					t.Errorf("bar %d: got %+v, want %+v", i, got, want)
				}
			}
			if metrics.sent != len(tt.want) {
				t.Errorf("expected %d sent records, got %d", len(tt.want), metrics.sent)
			}
		})
	}
}

func TestBarIngestHandlerRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    string
	}{
		{"malformed json", `{"symbol":`, "consumer_unmarshal"},
		{"missing symbol", `{"date":"2024-06-03","c":1}`, "consumer_invalid_bar"},
		{"missing date", `{"symbol":"QQQ","c":1}`, "consumer_invalid_bar"},
		{"zero close", `{"symbol":"QQQ","date":"2024-06-03"}`, "consumer_invalid_bar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memBarStore{}
			metrics := newCountingMetrics()
			h := NewBarIngestHandler("bars", store, metrics)

			if err := h.Handle(context.Background(), []byte(tt.payload)); err == nil {
				t.Fatal("expected error")
			}
			if metrics.errors[tt.kind] != 1 {
				t.Errorf("expected one %s error, got %v", tt.kind, metrics.errors)
			}
			if len(store.bars) != 0 {
				t.Errorf("nothing should be stored, got %d bars", len(store.bars))
			}
		})
	}
}

func TestBarIngestHandlerStoreFailure(t *testing.T) {
	store := &memBarStore{err: errors.New("clickhouse down")}
	metrics := newCountingMetrics()
	h := NewBarIngestHandler("bars", store, metrics)

	err := h.Handle(context.Background(), []byte(`{"symbol":"QQQ","date":"2024-06-03","c":1}`))
	if err == nil {
		t.Fatal("expected store error")
	}
	if metrics.errors["consumer_store"] != 1 {
		t.Errorf("expected store error to be counted, got %v", metrics.errors)
	}
	if h.Topic() != "bars" {
		t.Errorf("unexpected topic %q", h.Topic())
	}
}
