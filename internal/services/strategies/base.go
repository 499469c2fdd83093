// Package strategies implements the pluggable signal strategies.
package strategies

import (
	"fmt"
	"math"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/service"
)

// Strategy ids.
const (
	IDMomentum      = "momentum"
	IDMeanReversion = "mean_reversion"
	IDBuyHold       = "buy_hold"
	IDSMARSI        = "sma_rsi"
)

// Params tunes the configurable strategies.
type Params struct {
	Oversold          float64
	Overbought        float64
	ExtremeOversold   float64
	ExtremeOverbought float64
	MomentumLookback  int
	SupportWindow     int
}

// DefaultParams returns the standard RSI bands and a 20/10 day momentum window.
func DefaultParams() Params {
	return Params{
		Oversold:          30,
		Overbought:        70,
		ExtremeOversold:   20,
		ExtremeOverbought: 80,
		MomentumLookback:  20,
		SupportWindow:     10,
	}
}

// Defaults returns every built-in strategy in registration order.
func Defaults(p Params) []service.Strategy {
	return []service.Strategy{
		NewMomentum(p),
		NewMeanReversion(p),
		NewBuyHold(),
		NewSMARSI(),
	}
}

// Option configures a strategy.
type Option func(*base)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

type base struct {
	id          string
	displayName string
	description string
	risk        models.RiskLevel
	now         func() time.Time
}

func newBase(id, name, desc string, risk models.RiskLevel, opts []Option) base {
	b := base{id: id, displayName: name, description: desc, risk: risk, now: time.Now}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b *base) ID() string                  { return b.id }
func (b *base) DisplayName() string         { return b.displayName }
func (b *base) Description() string         { return b.description }
func (b *base) RiskLevel() models.RiskLevel { return b.risk }

// start validates the mandatory price and pre-fills the signal shared by all
// strategies. When ok is false the returned signal is an ERROR signal.
func (b *base) start(symbol string, series *models.PriceSeries, ind models.IndicatorSet, mctx models.MarketContext) (models.Signal, float64, bool) {
	at := b.now().UTC()
	price, ok := series.LastClose()
	if !ok {
		return models.NewErrorSignal(symbol, b.id, fmt.Sprintf("no price history for %s", symbol), at), 0, false
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return models.NewErrorSignal(symbol, b.id, fmt.Sprintf("invalid current price %v for %s", price, symbol), at), 0, false
	}
	return models.Signal{
		Symbol:          symbol,
		StrategyID:      b.id,
		Signal:          models.SignalHold,
		CurrentPrice:    models.Float(price),
		Indicators:      models.SnapshotOf(ind),
		VIXLevel:        mctx.VIXLevel,
		MarketSentiment: mctx.Sentiment,
		Timestamp:       at,
	}, price, true
}

// insufficient degrades to a low-confidence HOLD when a mandatory window is missing.
func insufficient(sig models.Signal, err *models.InsufficientDataError, conf float64) models.Signal {
	sig.Signal = models.SignalHold
	sig.Confidence = conf
	sig.Reasons = []string{err.Error() + "; holding until more history is available"}
	return sig
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// requireLatest returns the latest value of name, or an InsufficientDataError
// sized by window when it is not yet defined.
func requireLatest(ind models.IndicatorSet, name string, window int, have int) (float64, *models.InsufficientDataError) {
	v, ok := ind.Latest(name)
	if !ok {
		return 0, &models.InsufficientDataError{Indicator: name, Need: window, Have: have}
	}
	return v, nil
}

const missingVIXPenalty = 0.05

func missingVIXReason() string {
	return "VIX level unavailable: market context not applied"
}

func withRiskLevels(sig *models.Signal, symbol string, price float64, expected float64) {
	sig.StopLossPrice = models.Float(price * (1 - StopLossPct(symbol)))
	sig.TargetPrice = models.Float(price * (1 + expected*targetReturnShare))
}
