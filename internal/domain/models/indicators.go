package models

import "math"

// Indicator names used as IndicatorSet keys.
const (
	IndSMA10      = "sma_10"
	IndSMA20      = "sma_20"
	IndSMA50      = "sma_50"
	IndSMA200     = "sma_200"
	IndRSI14      = "rsi_14"
	IndMACD       = "macd"
	IndMACDSignal = "macd_signal"
	IndMACDHist   = "macd_hist"
	IndBBUpper    = "bb_upper"
	IndBBMiddle   = "bb_middle"
	IndBBLower    = "bb_lower"
	IndATR14      = "atr_14"
)

// IndicatorSet maps an indicator name to a sequence aligned with the price series.
// Undefined entries (window not yet full) are NaN. Indicators that could not be
// computed at all are absent.
type IndicatorSet map[string][]float64

// Latest returns the final value of name when present and defined.
func (s IndicatorSet) Latest(name string) (float64, bool) {
	return s.At(name, -1)
}

// At returns the value at index i; negative i counts from the end.
func (s IndicatorSet) At(name string, i int) (float64, bool) {
	vals, ok := s[name]
	if !ok || len(vals) == 0 {
		return 0, false
	}
	if i < 0 {
		i = len(vals) + i
	}
	if i < 0 || i >= len(vals) {
		return 0, false
	}
	v := vals[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// LatestPtr is Latest returning nil for absent values.
func (s IndicatorSet) LatestPtr(name string) *float64 {
	v, ok := s.Latest(name)
	if !ok {
		return nil
	}
	return &v
}

// IndicatorSnapshot holds the latest indicator values carried on a Signal.
type IndicatorSnapshot struct {
	SMA20      *float64 `json:"sma_20"`
	SMA50      *float64 `json:"sma_50"`
	SMA200     *float64 `json:"sma_200"`
	RSI14      *float64 `json:"rsi_14"`
	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macd_signal"`
	BBUpper    *float64 `json:"bb_upper"`
	BBLower    *float64 `json:"bb_lower"`
	ATR14      *float64 `json:"atr_14"`
}

// SnapshotOf captures the latest values of every known indicator.
func SnapshotOf(s IndicatorSet) *IndicatorSnapshot {
	return &IndicatorSnapshot{
		SMA20:      s.LatestPtr(IndSMA20),
		SMA50:      s.LatestPtr(IndSMA50),
		SMA200:     s.LatestPtr(IndSMA200),
		RSI14:      s.LatestPtr(IndRSI14),
		MACD:       s.LatestPtr(IndMACD),
		MACDSignal: s.LatestPtr(IndMACDSignal),
		BBUpper:    s.LatestPtr(IndBBUpper),
		BBLower:    s.LatestPtr(IndBBLower),
		ATR14:      s.LatestPtr(IndATR14),
	}
}

// Float returns a pointer to v; handy for the nullable fields above.
func Float(v float64) *float64 { return &v }
