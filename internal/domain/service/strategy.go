package service

import "SignalDesk/internal/domain/models"

// Strategy turns a price series and its indicators into a Signal.
// Evaluate must not panic and must not return an error: failures are
// reported as an ERROR signal.
type Strategy interface {
	ID() string
	DisplayName() string
	Description() string
	RiskLevel() models.RiskLevel
	// ExpectedReturn is the static annual return assumed for symbol.
	ExpectedReturn(symbol string) float64
	Evaluate(symbol string, series *models.PriceSeries, ind models.IndicatorSet, mctx models.MarketContext) models.Signal
}

// Describe builds the public descriptor of s.
func Describe(s Strategy, active bool) models.StrategyDescriptor {
	return models.StrategyDescriptor{
		ID:          s.ID(),
		DisplayName: s.DisplayName(),
		Description: s.Description(),
		RiskLevel:   s.RiskLevel(),
		IsActive:    active,
	}
}
