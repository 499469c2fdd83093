package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/internal/domain/service"
)

var testNow = time.Date(2024, 6, 3, 20, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// makeSeries builds daily bars ending on testNow's date.
func makeSeries(symbol string, closes []float64) *models.PriceSeries {
	start := testNow.AddDate(0, 0, -len(closes))
	bars := make([]models.Candle, len(closes))
	for i, c := range closes {
		bars[i] = models.Candle{
			Date:   start.AddDate(0, 0, i+1),
			Symbol: symbol,
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return models.NewPriceSeries(symbol, bars)
}

func linear(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

type fakeSource struct {
	mu     sync.Mutex
	series map[string]*models.PriceSeries
	errs   map[string]error
	calls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		series: map[string]*models.PriceSeries{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeSource) with(symbol string, closes []float64) *fakeSource {
	f.series[symbol] = makeSeries(symbol, closes)
	return f
}

func (f *fakeSource) failing(symbol string, err error) *fakeSource {
	f.errs[symbol] = err
	return f
}

func (f *fakeSource) FetchSeries(_ context.Context, symbol string, _ repository.Period) (*models.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	s, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("no data for %s", symbol)
	}
	return s, nil
}

type fakeMarket struct{ mctx models.MarketContext }

func (f fakeMarket) Context(context.Context) models.MarketContext { return f.mctx }

type stubStrategy struct {
	id     string
	risk   models.RiskLevel
	out    models.SignalType
	conf   float64
	panics bool
}

var _ service.Strategy = (*stubStrategy)(nil)

func (s *stubStrategy) ID() string                           { return s.id }
func (s *stubStrategy) DisplayName() string                  { return "Stub " + s.id }
func (s *stubStrategy) Description() string                  { return "test strategy" }
func (s *stubStrategy) RiskLevel() models.RiskLevel          { return s.risk }
func (s *stubStrategy) ExpectedReturn(symbol string) float64 { return 0.1 }

func (s *stubStrategy) Evaluate(symbol string, series *models.PriceSeries, _ models.IndicatorSet, _ models.MarketContext) models.Signal {
	if s.panics {
		panic("boom")
	}
	price, _ := series.LastClose()
	conf := s.conf
	if conf == 0 {
		conf = 0.9
	}
	return models.Signal{
		Symbol:       symbol,
		StrategyID:   s.id,
		Signal:       s.out,
		Confidence:   conf,
		Reasons:      []string{"stub " + string(s.out)},
		CurrentPrice: &price,
		Timestamp:    testNow,
	}
}

func stub(id string, risk models.RiskLevel, out models.SignalType) *stubStrategy {
	return &stubStrategy{id: id, risk: risk, out: out}
}

type memHoldingStore struct {
	mu       sync.Mutex
	holdings []models.Holding
	saved    bool
	saves    int
	err      error
}

func (m *memHoldingStore) LoadHoldings(context.Context) ([]models.Holding, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Holding(nil), m.holdings...), m.saved, nil
}

func (m *memHoldingStore) SaveHoldings(_ context.Context, h []models.Holding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.holdings = append([]models.Holding(nil), h...)
	m.saved = true
	m.saves++
	return nil
}

type memWatchlist struct {
	mu     sync.Mutex
	stocks models.MonitoredStocks
	saved  bool
}

func (m *memWatchlist) LoadWatchlist(context.Context) (models.MonitoredStocks, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneStocks(m.stocks), m.saved, nil
}

func (m *memWatchlist) SaveWatchlist(_ context.Context, s models.MonitoredStocks) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stocks = cloneStocks(s)
	m.saved = true
	return nil
}

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]models.Signal
	err     error
}

func (c *capturePublisher) PublishSignals(_ context.Context, s []models.Signal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, s)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }
