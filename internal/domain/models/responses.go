package models

// Response bodies that combine several domain values.

type StrategiesResponse struct {
	Strategies []StrategyDescriptor `json:"strategies"`
	Active     string               `json:"active_strategy"`
}

type SwitchStrategyResponse struct {
	Previous string             `json:"previous_strategy,omitempty"`
	Active   StrategyDescriptor `json:"active_strategy"`
}

type PortfolioResponse struct {
	Analysis        PortfolioAnalysis `json:"analysis"`
	ExpectedReturns *ExpectedReturns  `json:"expected_returns,omitempty"`
	Targets         TargetWeights     `json:"target_weights"`
}

type RebalanceResponse struct {
	Suggestions []RebalanceSuggestion `json:"suggestions"`
	TotalValue  TotalValue            `json:"total_value"`
	Warnings    []PriceWarning        `json:"warnings,omitempty"`
}

type StockChangeResponse struct {
	Symbol    string          `json:"symbol"`
	Region    Region          `json:"region"`
	Changed   bool            `json:"changed"`
	Monitored MonitoredStocks `json:"monitored"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
