package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/internal/domain/service"
	"SignalDesk/internal/services/indicators"
	"SignalDesk/pkg/logger"
)

// EvaluationRecorder receives per-evaluation telemetry.
type EvaluationRecorder interface {
	RecordEvaluation(strategyID string, signal models.SignalType, took time.Duration)
	RecordFetchError(symbol string)
}

type nopRecorder struct{}

func (nopRecorder) RecordEvaluation(string, models.SignalType, time.Duration) {}
func (nopRecorder) RecordFetchError(string)                                   {}

// EvalInput is everything a strategy needs for one symbol.
type EvalInput struct {
	Series     *models.PriceSeries
	Indicators models.IndicatorSet
	Market     models.MarketContext
}

// SignalService evaluates strategies against freshly loaded price history.
// It holds no per-symbol state.
type SignalService struct {
	source   repository.PriceSource
	market   repository.MarketContextProvider
	registry *StrategyRegistry
	period   repository.Period
	log      *logger.Logger
	metrics  EvaluationRecorder
	now      func() time.Time
}

type SignalOption func(*SignalService)

// WithMarketContext enables the optional VIX context.
func WithMarketContext(p repository.MarketContextProvider) SignalOption {
	return func(s *SignalService) { s.market = p }
}

// WithPeriod sets the history length fetched per evaluation.
func WithPeriod(p repository.Period) SignalOption {
	return func(s *SignalService) { s.period = repository.NormalizePeriod(string(p)) }
}

func WithLogger(l *logger.Logger) SignalOption {
	return func(s *SignalService) { s.log = l }
}

func WithEvalMetrics(m EvaluationRecorder) SignalOption {
	return func(s *SignalService) { s.metrics = m }
}

func WithSignalClock(now func() time.Time) SignalOption {
	return func(s *SignalService) { s.now = now }
}

func NewSignalService(source repository.PriceSource, registry *StrategyRegistry, opts ...SignalOption) *SignalService {
	s := &SignalService{
		source:   source,
		registry: registry,
		period:   repository.DefaultPeriod(),
		log:      logger.Nop(),
		metrics:  nopRecorder{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NormalizeSymbol trims and upper-cases a ticker, rejecting blanks.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.ContainsAny(s, " /\\") {
		return "", &models.UnknownSymbolError{Symbol: symbol}
	}
	return s, nil
}

// MarketContext returns the current optional market state.
func (s *SignalService) MarketContext(ctx context.Context) models.MarketContext {
	if s.market == nil {
		return models.MarketContext{}
	}
	return s.market.Context(ctx)
}

// Load fetches the series for symbol and computes its indicators.
// Any source failure is returned as a *models.DataFetchError.
func (s *SignalService) Load(ctx context.Context, symbol string) (*EvalInput, error) {
	series, err := s.fetch(ctx, symbol, s.period)
	if err != nil {
		return nil, err
	}
	return &EvalInput{
		Series:     series,
		Indicators: indicators.Compute(series),
		Market:     s.MarketContext(ctx),
	}, nil
}

func (s *SignalService) fetch(ctx context.Context, symbol string, period repository.Period) (*models.PriceSeries, error) {
	series, err := s.source.FetchSeries(ctx, symbol, period)
	if err == nil {
		err = series.Validate()
	}
	if err != nil {
		s.metrics.RecordFetchError(symbol)
		s.log.Warn("price series unavailable", logger.String("symbol", symbol), logger.Error(err))
		var fe *models.DataFetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &models.DataFetchError{Symbol: symbol, Err: err}
	}
	return series, nil
}

// SignalFor evaluates one strategy for symbol. An empty strategyID uses the
// active strategy for this call only. Data failures come back as an ERROR
// signal; only unknown symbols and strategies are returned as errors.
func (s *SignalService) SignalFor(ctx context.Context, symbol, strategyID string) (models.Signal, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return models.Signal{}, err
	}
	strat, err := s.registry.Resolve(strategyID)
	if err != nil {
		return models.Signal{}, err
	}

	in, err := s.Load(ctx, sym)
	if err != nil {
		return models.NewErrorSignal(sym, strat.ID(), err.Error(), s.now()), nil
	}
	return s.Evaluate(strat, sym, in), nil
}

// Evaluate runs strat over a loaded input. A panicking strategy yields an ERROR signal.
func (s *SignalService) Evaluate(strat service.Strategy, symbol string, in *EvalInput) (sig models.Signal) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("strategy panicked",
				logger.String("strategy", strat.ID()),
				logger.String("symbol", symbol),
				logger.Any("panic", r),
			)
			sig = models.NewErrorSignal(symbol, strat.ID(), fmt.Sprintf("strategy %s failed: %v", strat.ID(), r), s.now())
		}
		s.metrics.RecordEvaluation(strat.ID(), sig.Signal, time.Since(start))
	}()
	return strat.Evaluate(symbol, in.Series, in.Indicators, in.Market)
}

// ConsensusFor runs every registered strategy on the same series.
func (s *SignalService) ConsensusFor(ctx context.Context, symbol string) (*models.Consensus, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	strats := s.registry.All()
	if len(strats) == 0 {
		return nil, models.ErrNoActiveStrategy
	}

	signals := make([]models.Signal, len(strats))
	in, err := s.Load(ctx, sym)
	if err != nil {
		for i, st := range strats {
			signals[i] = models.NewErrorSignal(sym, st.ID(), err.Error(), s.now())
		}
	} else {
		var wg sync.WaitGroup
		for i, st := range strats {
			wg.Add(1)
			go func(i int, st service.Strategy) {
				defer wg.Done()
				signals[i] = s.Evaluate(st, sym, in)
			}(i, st)
		}
		wg.Wait()
	}

	c := Tally(sym, signals, s.now())
	return &c, nil
}

// Tally counts votes. ERROR signals stay in the list but are not counted.
// BUY or SELL wins only with a strict plurality over both other types.
func Tally(symbol string, signals []models.Signal, at time.Time) models.Consensus {
	c := models.Consensus{
		Symbol:          symbol,
		Signals:         signals,
		TotalStrategies: len(signals),
		Timestamp:       at,
	}
	for _, sig := range signals {
		switch sig.Signal {
		case models.SignalBuy:
			c.BuyVotes++
		case models.SignalSell:
			c.SellVotes++
		case models.SignalHold:
			c.HoldVotes++
		default:
			c.ErrorCount++
		}
	}

	valid := c.BuyVotes + c.SellVotes + c.HoldVotes
	switch {
	case valid == 0:
		c.Signal = models.SignalError
		c.Confidence = 0
	case c.BuyVotes > c.SellVotes && c.BuyVotes > c.HoldVotes:
		c.Signal = models.SignalBuy
		c.Confidence = float64(c.BuyVotes) / float64(valid)
	case c.SellVotes > c.BuyVotes && c.SellVotes > c.HoldVotes:
		c.Signal = models.SignalSell
		c.Confidence = float64(c.SellVotes) / float64(valid)
	default:
		c.Signal = models.SignalHold
		c.Confidence = 0.5
	}
	return c
}

// ChartData returns closes, volumes and the plotted indicators for period.
func (s *SignalService) ChartData(ctx context.Context, symbol string, period repository.Period) (*models.ChartData, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	period = repository.NormalizePeriod(string(period))
	series, err := s.fetch(ctx, sym, period)
	if err != nil {
		return nil, err
	}

	closes := series.Closes()
	out := &models.ChartData{
		Symbol:  sym,
		Period:  string(period),
		Dates:   make([]string, series.Len()),
		Closes:  closes,
		Volumes: series.Volumes(),
	}
	for i, d := range series.Dates() {
		out.Dates[i] = d.Format(time.DateOnly)
	}

	sma20, _ := indicators.SMA(closes, 20)
	sma50, _ := indicators.SMA(closes, 50)
	rsi, _ := indicators.RSI(closes, indicators.RSIWindow)
	out.SMA20 = nullable(sma20, len(closes))
	out.SMA50 = nullable(sma50, len(closes))
	out.RSI14 = nullable(rsi, len(closes))
	return out, nil
}

// nullable maps NaN (or a missing series) to nil so JSON renders null.
func nullable(values []float64, n int) []*float64 {
	out := make([]*float64, n)
	for i := 0; i < n && i < len(values); i++ {
		if !math.IsNaN(values[i]) {
			out[i] = models.Float(values[i])
		}
	}
	return out
}
