package models

import "time"

// SignalType is the discrete trading decision.
type SignalType string

const (
	SignalBuy   SignalType = "BUY"
	SignalSell  SignalType = "SELL"
	SignalHold  SignalType = "HOLD"
	SignalError SignalType = "ERROR"
)

// Signal is the output of one strategy evaluation for one symbol.
// Optional fields are nil when unknown. ERROR signals carry no price and no indicators.
type Signal struct {
	Symbol          string             `json:"symbol"`
	StrategyID      string             `json:"strategy_id"`
	Signal          SignalType         `json:"signal"`
	Confidence      float64            `json:"confidence"`
	Reasons         []string           `json:"reasons"`
	CurrentPrice    *float64           `json:"current_price"`
	Indicators      *IndicatorSnapshot `json:"indicators"`
	VIXLevel        *float64           `json:"vix_level"`
	MarketSentiment *string            `json:"market_sentiment"`
	StopLossPrice   *float64           `json:"stop_loss_price"`
	TargetPrice     *float64           `json:"target_price"`
	Timestamp       time.Time          `json:"timestamp"`
	Filtered        bool               `json:"filtered"`
	FilterReason    string             `json:"filter_reason,omitempty"`
}

// IsError reports whether the signal is an ERROR signal.
func (s Signal) IsError() bool { return s.Signal == SignalError }

// NewErrorSignal builds an ERROR signal whose only reason is msg.
func NewErrorSignal(symbol, strategyID, msg string, at time.Time) Signal {
	return Signal{
		Symbol:     symbol,
		StrategyID: strategyID,
		Signal:     SignalError,
		Confidence: 0,
		Reasons:    []string{msg},
		Timestamp:  at,
	}
}

// Suppressed returns a copy downgraded by the signal filter.
// BUY and SELL become HOLD at half confidence; the receiver is left untouched.
func (s Signal) Suppressed(reason string) Signal {
	out := s
	out.Reasons = append(append([]string(nil), s.Reasons...), "[filtered] "+reason)
	out.Filtered = true
	out.FilterReason = reason
	if s.Signal == SignalBuy || s.Signal == SignalSell {
		out.Signal = SignalHold
		out.Confidence = s.Confidence * 0.5
	}
	return out
}

// Passed returns a copy marked as having passed the signal filter.
func (s Signal) Passed() Signal {
	out := s
	out.Filtered = false
	out.FilterReason = "signal passed all filters"
	return out
}

// Consensus is the cross-strategy vote for one symbol.
type Consensus struct {
	Symbol          string     `json:"symbol"`
	BuyVotes        int        `json:"buy_votes"`
	SellVotes       int        `json:"sell_votes"`
	HoldVotes       int        `json:"hold_votes"`
	ErrorCount      int        `json:"error_count"`
	TotalStrategies int        `json:"total_strategies"`
	Signal          SignalType `json:"signal"`
	Confidence      float64    `json:"confidence"`
	Signals         []Signal   `json:"signals"`
	Timestamp       time.Time  `json:"timestamp"`
}

// SignalBatch is the result of evaluating every monitored symbol.
type SignalBatch struct {
	StrategyID   string    `json:"strategy_used"`
	Signals      []Signal  `json:"signals"`
	TotalSignals int       `json:"total_signals"`
	Timestamp    time.Time `json:"timestamp"`
}

// ChartData is a per-symbol series aligned for plotting. Undefined values are nil.
type ChartData struct {
	Symbol  string     `json:"symbol"`
	Period  string     `json:"period"`
	Dates   []string   `json:"dates"`
	Closes  []float64  `json:"prices"`
	Volumes []float64  `json:"volumes"`
	SMA20   []*float64 `json:"sma_20"`
	SMA50   []*float64 `json:"sma_50"`
	RSI14   []*float64 `json:"rsi"`
}
