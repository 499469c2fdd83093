package models

// VIX thresholds used by risk-aware strategies.
const (
	VIXLow   = 15.0
	VIXHigh  = 25.0
	VIXPanic = 30.0
)

// Sentiment labels derived from the VIX level.
const (
	SentimentExtremeGreed = "extreme_greed"
	SentimentGreed        = "greed"
	SentimentNeutral      = "neutral"
	SentimentFear         = "fear"
	SentimentExtremeFear  = "extreme_fear"
	SentimentPanic        = "panic"
)

// MarketContext is optional ancillary market state. Nil fields mean unknown.
type MarketContext struct {
	VIXLevel  *float64 `json:"vix_level"`
	Sentiment *string  `json:"market_sentiment"`
}

// SentimentForVIX buckets a VIX level into a sentiment label.
func SentimentForVIX(vix float64) string {
	switch {
	case vix <= 12:
		return SentimentExtremeGreed
	case vix <= 15:
		return SentimentGreed
	case vix <= 20:
		return SentimentNeutral
	case vix <= 25:
		return SentimentFear
	case vix <= 30:
		return SentimentExtremeFear
	default:
		return SentimentPanic
	}
}

// NewMarketContext fills both fields from a VIX level.
func NewMarketContext(vix float64) MarketContext {
	s := SentimentForVIX(vix)
	return MarketContext{VIXLevel: &vix, Sentiment: &s}
}
