package models

import "fmt"

// RiskLevel is the ordinal risk class of a strategy or a risk plan.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Ordinal maps low/medium/high to 0/1/2 and anything else to -1.
func (r RiskLevel) Ordinal() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return -1
	}
}

func (r RiskLevel) Valid() bool { return r.Ordinal() >= 0 }

// ParseRiskLevel accepts low, medium and high.
func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid risk level %q", s)
	}
	return r, nil
}

// Risk scores used to normalise expected return when ranking strategies.
const (
	RiskScoreLow    = 0.8
	RiskScoreMedium = 1.0
	RiskScoreHigh   = 1.3
)

// Score returns the fixed risk scalar of the level.
func (r RiskLevel) Score() float64 {
	switch r {
	case RiskLow:
		return RiskScoreLow
	case RiskHigh:
		return RiskScoreHigh
	default:
		return RiskScoreMedium
	}
}

// StrategyDescriptor is the public description of a registered strategy.
type StrategyDescriptor struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	RiskLevel   RiskLevel `json:"risk_level"`
	IsActive    bool      `json:"is_active"`
}
