package models

import (
	"strings"
	"time"
)

// Region groups symbols that share a quote currency.
type Region string

const (
	RegionUS Region = "US"
	RegionTW Region = "TW"
)

// RegionForSymbol infers the region from the exchange suffix.
func RegionForSymbol(symbol string) Region {
	if strings.HasSuffix(strings.ToUpper(symbol), ".TW") {
		return RegionTW
	}
	return RegionUS
}

// Holding is one position owned by the portfolio.
type Holding struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"cost_basis"`
	Region    Region  `json:"region"`
}

// HoldingValue is a holding priced at the latest close.
// CurrentPrice, Value and Weight are nil when the price could not be resolved.
type HoldingValue struct {
	Holding
	CurrentPrice  *float64 `json:"current_price"`
	Value         *float64 `json:"current_value"`
	CostValue     float64  `json:"cost_value"`
	UnrealizedPnL *float64 `json:"unrealized_pnl"`
	Weight        *float64 `json:"weight"`
	Warning       string   `json:"warning,omitempty"`
}

// TotalValue holds portfolio value by symbol, by region and overall.
// Values are summed in each holding's quote currency.
type TotalValue struct {
	BySymbol map[string]float64 `json:"by_symbol"`
	ByRegion map[Region]float64 `json:"by_region"`
	Total    float64            `json:"total"`
}

// PriceWarning flags a holding left out of the totals.
type PriceWarning struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// Performance summarises cost against value for priced holdings.
type Performance struct {
	TotalCost      float64 `json:"total_cost"`
	TotalValue     float64 `json:"total_value"`
	TotalGainLoss  float64 `json:"total_gain_loss"`
	TotalReturnPct float64 `json:"total_return_pct"`
}

// PortfolioAnalysis is the valuation of a set of holdings.
// Allocation weights are relative to the holding's region total.
type PortfolioAnalysis struct {
	TotalValue  TotalValue         `json:"total_value"`
	Allocation  map[string]float64 `json:"allocation"`
	Holdings    []HoldingValue     `json:"holdings"`
	Performance Performance        `json:"performance"`
	Warnings    []PriceWarning     `json:"warnings,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// ExpectedReturns projects portfolio value under a strategy's return profile.
type ExpectedReturns struct {
	StrategyID           string  `json:"strategy_id"`
	ExpectedAnnualReturn float64 `json:"expected_annual_return"`
	ExpectedVolatility   float64 `json:"expected_volatility"`
	SharpeRatio          float64 `json:"sharpe_ratio"`
	CurrentValue         float64 `json:"current_value"`
	ProjectedValue1Y     float64 `json:"projected_value_1y"`
	ProjectedValue3Y     float64 `json:"projected_value_3y"`
	ProjectedValue5Y     float64 `json:"projected_value_5y"`
	ProjectedValue10Y    float64 `json:"projected_value_10y"`
	BestCase1Y           float64 `json:"best_case_1y"`
	WorstCase1Y          float64 `json:"worst_case_1y"`
	VaR95_1Y             float64 `json:"var_95_1y"`
}

// RebalanceAction is the direction of a rebalancing trade.
type RebalanceAction string

const (
	RebalanceBuy  RebalanceAction = "BUY"
	RebalanceSell RebalanceAction = "SELL"
)

// RebalanceSuggestion moves one symbol back towards its target weight.
type RebalanceSuggestion struct {
	Symbol        string          `json:"symbol"`
	Region        Region          `json:"region"`
	Action        RebalanceAction `json:"action"`
	Amount        float64         `json:"amount"`
	CurrentWeight float64         `json:"current_weight"`
	TargetWeight  float64         `json:"target_weight"`
	Deviation     float64         `json:"deviation"`
	Priority      string          `json:"priority"`
	Reason        string          `json:"reason"`
}

// TargetWeights maps region to symbol to target weight within that region.
type TargetWeights map[Region]map[string]float64

// StrategyMetrics is one row of a strategy comparison.
type StrategyMetrics struct {
	StrategyID           string    `json:"strategy_id"`
	DisplayName          string    `json:"display_name"`
	RiskLevel            RiskLevel `json:"risk_level"`
	ExpectedAnnualReturn float64   `json:"expected_annual_return"`
	ExpectedVolatility   float64   `json:"expected_volatility"`
	CurrentValue         float64   `json:"current_value"`
	ProjectedValue       float64   `json:"projected_value"`
	RiskScore            float64   `json:"risk_score"`
	RiskAdjustedReturn   float64   `json:"risk_adjusted_return"`
}

// StrategyComparison ranks strategies by risk-adjusted return.
type StrategyComparison struct {
	Comparison   map[string]StrategyMetrics `json:"comparison"`
	Ranking      []StrategyMetrics          `json:"ranking"`
	BestStrategy string                     `json:"best_strategy,omitempty"`
	TimeHorizon  int                        `json:"time_horizon"`
}

// MonitoredStocks lists the symbols evaluated by the signal board.
type MonitoredStocks map[Region][]string
