// Package risk builds stop-loss and take-profit plans for a position.
package risk

import (
	"fmt"
	"math"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/services/indicators"
)

// Plan keys in presentation order.
const (
	PlanConservative = "conservative"
	PlanBalanced     = "balanced"
	PlanTechnical    = "technical"
	PlanAggressive   = "aggressive"
)

// PlanOrder is the order plans are built and searched in.
var PlanOrder = []string{PlanConservative, PlanBalanced, PlanTechnical, PlanAggressive}

// Profile holds the stop parameters of one risk posture.
type Profile struct {
	StopLossPct     float64
	TakeProfitPct   float64
	TrailingStopPct float64
	ATRMultiplier   float64
	RiskRewardRatio float64
}

// DefaultProfiles maps each risk level to its posture.
func DefaultProfiles() map[models.RiskLevel]Profile {
	return map[models.RiskLevel]Profile{
		models.RiskLow:    {StopLossPct: 0.05, TakeProfitPct: 0.10, TrailingStopPct: 0.03, ATRMultiplier: 1.5, RiskRewardRatio: 2.0},
		models.RiskMedium: {StopLossPct: 0.08, TakeProfitPct: 0.15, TrailingStopPct: 0.05, ATRMultiplier: 2.0, RiskRewardRatio: 1.8},
		models.RiskHigh:   {StopLossPct: 0.12, TakeProfitPct: 0.25, TrailingStopPct: 0.08, ATRMultiplier: 2.5, RiskRewardRatio: 1.5},
	}
}

// Manager is stateless; one instance can serve concurrent callers.
type Manager struct {
	profiles map[models.RiskLevel]Profile
	now      func() time.Time
}

type Option func(*Manager)

func WithProfiles(p map[models.RiskLevel]Profile) Option {
	return func(m *Manager) { m.profiles = p }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{profiles: DefaultProfiles(), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

const volatilityWindow = 20

// PlansFor builds every plan for one symbol and recommends the plan matching level.
// series supplies the highs and lows used by the technical and trailing plans.
func (m *Manager) PlansFor(symbol string, price float64, series *models.PriceSeries, ind models.IndicatorSet, level models.RiskLevel) (*models.RiskAssessment, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, fmt.Errorf("invalid current price %v for %s", price, symbol)
	}
	if !level.Valid() {
		return nil, fmt.Errorf("invalid risk level %q", level)
	}
	highs, lows := series.Highs(), series.Lows()
	atr, hasATR := ind.Latest(models.IndATR14)

	low := m.profiles[models.RiskLow]
	posture := m.profiles[level]
	high := m.profiles[models.RiskHigh]

	balancedStop := atrStop(price, atr, hasATR, posture.ATRMultiplier)
	plans := map[string]models.RiskPlan{
		PlanConservative: {
			Name:        "Conservative fixed percentage",
			Description: "Tight fixed stop and target for strict risk control",
			StopLoss:    fixedStop(price, low.StopLossPct),
			TakeProfit:  fixedTakeProfit(price, low.TakeProfitPct),
			RiskLevel:   models.RiskLow,
			Suitability: "new investors with low risk tolerance",
		},
		PlanBalanced: {
			Name:        "ATR dynamic",
			Description: "Stop scaled by recent volatility with a risk-reward target",
			StopLoss:    balancedStop,
			TakeProfit:  riskRewardTakeProfit(price, balancedStop.Price, posture.RiskRewardRatio),
			RiskLevel:   models.RiskMedium,
			Suitability: "experienced investors adapting to volatility",
		},
		PlanTechnical: {
			Name:        "Technical levels",
			Description: "Stop under swing-low support with a Fibonacci target",
			StopLoss:    supportStop(price, highs, lows),
			TakeProfit:  fibonacciTakeProfit(price, highs, lows),
			RiskLevel:   models.RiskMedium,
			Suitability: "technical analysis practitioners",
		},
		PlanAggressive: {
			Name:        "Trailing dynamic",
			Description: "Trailing stop and target to ride clear trends",
			StopLoss:    trailingStop(price, highs, high.TrailingStopPct),
			TakeProfit:  trailingTakeProfitLevel(price, high.TrailingStopPct),
			RiskLevel:   models.RiskHigh,
			Suitability: "active investors comfortable with larger swings",
		},
	}

	out := &models.RiskAssessment{
		Symbol:         symbol,
		CurrentPrice:   price,
		RiskLevel:      level,
		Plans:          plans,
		PlanOrder:      append([]string(nil), PlanOrder...),
		Recommendation: Recommend(plans, PlanOrder, level),
		Timestamp:      m.now().UTC(),
	}
	if vol, ok := indicators.RealizedVolatility(indicators.LogReturns(series.Closes()), volatilityWindow); ok {
		out.RealizedVolatility = &vol
	}
	return out, nil
}

// Recommend picks the first plan in order whose risk level equals level, else
// the plan nearest by ordinal distance. Ties go to the earlier plan.
func Recommend(plans map[string]models.RiskPlan, order []string, level models.RiskLevel) models.RiskRecommendation {
	best, bestDist := "", math.MaxInt
	for _, key := range order {
		p, ok := plans[key]
		if !ok {
			continue
		}
		d := p.RiskLevel.Ordinal() - level.Ordinal()
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = key, d
		}
	}
	if best == "" {
		return models.RiskRecommendation{Reason: "no plans available"}
	}

	rec := models.RiskRecommendation{RecommendedPlan: best}
	if bestDist == 0 {
		rec.Reason = fmt.Sprintf("exact match: plan risk level %s equals strategy risk level %s", plans[best].RiskLevel, level)
	} else {
		rec.Reason = fmt.Sprintf("nearest match: no %s plan, %s plan is %d level(s) away", level, plans[best].RiskLevel, bestDist)
	}
	alt := PlanTechnical
	if best == PlanTechnical {
		alt = PlanBalanced
	}
	if _, ok := plans[alt]; ok {
		rec.Alternative = alt
	}
	return rec
}
