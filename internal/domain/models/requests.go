package models

// Requests for the HTTP API. Bound by echo, then defaults, then validator.

type SignalsRequest struct {
	Strategy string `query:"strategy" json:"strategy" validate:"omitempty,max=32"`
}

type SymbolSignalRequest struct {
	Symbol   string `param:"symbol" validate:"required,symbol"`
	Strategy string `query:"strategy" validate:"omitempty,max=32"`
}

type ConsensusRequest struct {
	Symbol string `param:"symbol" validate:"required,symbol"`
}

type SwitchStrategyRequest struct {
	Strategy string `json:"strategy" validate:"required,max=32"`
}

type CompareRequest struct {
	TimeHorizon int `query:"time_horizon" json:"time_horizon" default:"5" validate:"gte=1,lte=30"`
}

type PortfolioRequest struct {
	Strategy string `query:"strategy" validate:"omitempty,max=32"`
}

type AddHoldingRequest struct {
	Symbol    string  `json:"symbol" validate:"required,symbol"`
	Quantity  float64 `json:"quantity" validate:"gt=0"`
	CostBasis float64 `json:"cost_basis" validate:"gt=0"`
	Region    string  `json:"region" validate:"omitempty,oneof=US TW"`
}

type RemoveHoldingRequest struct {
	Symbol string `param:"symbol" validate:"required,symbol"`
}

type AddStockRequest struct {
	Symbol string `json:"symbol" validate:"required,symbol"`
	Region string `json:"region" validate:"omitempty,oneof=US TW"`
}

type RemoveStockRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	Region string `query:"region" json:"region" validate:"omitempty,oneof=US TW"`
}

type RiskRequest struct {
	Symbol    string `param:"symbol" validate:"required,symbol"`
	RiskLevel string `query:"risk_level" validate:"omitempty,oneof=low medium high"`
	Strategy  string `query:"strategy" validate:"omitempty,max=32"`
}

type RiskBatchRequest struct {
	RiskLevel string `query:"risk_level" validate:"omitempty,oneof=low medium high"`
	Strategy  string `query:"strategy" validate:"omitempty,max=32"`
}

type ChartRequest struct {
	Symbol string `param:"symbol" validate:"required,symbol"`
	Period string `query:"period" default:"6mo" validate:"oneof=1mo 3mo 6mo 1y 2y"`
}
