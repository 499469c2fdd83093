package models

import "time"

// PriceLevel is a stop-loss or take-profit level.
type PriceLevel struct {
	Type        string  `json:"type"`
	Price       float64 `json:"price"`
	Percentage  float64 `json:"percentage"`
	Distance    float64 `json:"distance"`
	Description string  `json:"description"`
	Reasoning   string  `json:"reasoning"`
}

// RiskPlan pairs a stop-loss with a take-profit for one posture.
type RiskPlan struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StopLoss    PriceLevel `json:"stop_loss"`
	TakeProfit  PriceLevel `json:"take_profit"`
	RiskLevel   RiskLevel  `json:"risk_level"`
	Suitability string     `json:"suitability"`
}

// RiskRecommendation names one key of RiskAssessment.Plans.
type RiskRecommendation struct {
	RecommendedPlan string `json:"recommended_plan"`
	Reason          string `json:"reason"`
	Alternative     string `json:"alternative,omitempty"`
}

// RiskAssessment is the full plan set for one symbol.
type RiskAssessment struct {
	Symbol             string              `json:"symbol"`
	CurrentPrice       float64             `json:"current_price"`
	RiskLevel          RiskLevel           `json:"risk_level"`
	StrategyID         string              `json:"strategy_id,omitempty"`
	RealizedVolatility *float64            `json:"realized_volatility"`
	Plans              map[string]RiskPlan `json:"plans"`
	PlanOrder          []string            `json:"plan_order"`
	Recommendation     RiskRecommendation  `json:"recommendation"`
	Timestamp          time.Time           `json:"timestamp"`
}

// RiskResult is one symbol's outcome inside a batch.
type RiskResult struct {
	Success bool            `json:"success"`
	Data    *RiskAssessment `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RiskBatch maps region to symbol to result.
type RiskBatch map[Region]map[string]RiskResult
