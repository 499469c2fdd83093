package strategies

import "strings"

// Static annual return assumptions per symbol.
var baseReturns = map[string]float64{
	"VOO":      0.10,
	"SPY":      0.10,
	"QQQ":      0.12,
	"NVDA":     0.25,
	"AAPL":     0.15,
	"MSFT":     0.14,
	"TSLA":     0.20,
	"0050.TW":  0.08,
	"00878.TW": 0.06,
	"0056.TW":  0.06,
	"2330.TW":  0.12,
}

// Annualised volatility assumptions per symbol.
var volatilities = map[string]float64{
	"VOO":      0.16,
	"SPY":      0.16,
	"QQQ":      0.20,
	"NVDA":     0.45,
	"AAPL":     0.25,
	"MSFT":     0.23,
	"TSLA":     0.50,
	"0050.TW":  0.18,
	"00878.TW": 0.12,
	"0056.TW":  0.12,
	"2330.TW":  0.30,
}

var stopLossPcts = map[string]float64{
	"NVDA":     0.15,
	"TSLA":     0.20,
	"AAPL":     0.12,
	"MSFT":     0.12,
	"QQQ":      0.12,
	"VOO":      0.10,
	"SPY":      0.10,
	"0050.TW":  0.10,
	"00878.TW": 0.08,
	"2330.TW":  0.15,
}

const (
	defaultReturn     = 0.08
	defaultVolatility = 0.15
	defaultStopLoss   = 0.12
	// share of the annual expected return used as a near-term price target
	targetReturnShare = 0.3
)

func lookup(table map[string]float64, symbol string, def float64) float64 {
	if v, ok := table[strings.ToUpper(symbol)]; ok {
		return v
	}
	return def
}

// BaseReturn is the strategy-neutral annual return assumed for symbol.
func BaseReturn(symbol string) float64 { return lookup(baseReturns, symbol, defaultReturn) }

// Volatility is the annualised volatility assumed for symbol.
func Volatility(symbol string) float64 { return lookup(volatilities, symbol, defaultVolatility) }

// StopLossPct is the per-symbol stop distance used on BUY signals.
func StopLossPct(symbol string) float64 { return lookup(stopLossPcts, symbol, defaultStopLoss) }

func isBroadETF(symbol string) bool {
	s := strings.ToUpper(symbol)
	return strings.Contains(s, "ETF") || s == "VOO" || s == "QQQ" || s == "SPY"
}

func isHighBeta(symbol string) bool {
	s := strings.ToUpper(symbol)
	return s == "NVDA" || s == "TSLA"
}

func momentumMultiplier(symbol string) float64 {
	switch {
	case isBroadETF(symbol):
		return 1.1
	case isHighBeta(symbol):
		return 1.5
	default:
		return 1.3
	}
}

func meanReversionMultiplier(symbol string) float64 {
	switch {
	case isBroadETF(symbol):
		return 1.0
	case isHighBeta(symbol):
		return 1.1
	default:
		return 0.9
	}
}

func buyHoldMultiplier(symbol string) float64 {
	s := strings.ToUpper(symbol)
	switch {
	case s == "VOO" || s == "SPY":
		return 1.0
	case s == "QQQ":
		return 1.05
	case isHighBeta(s):
		return 1.2
	case strings.HasSuffix(s, ".TW"):
		return 0.95
	default:
		return 1.1
	}
}
