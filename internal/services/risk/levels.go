package risk

import (
	"fmt"
	"math"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/services/indicators"
)

// Level types.
const (
	TypeFixed      = "fixed_percentage"
	TypeATR        = "atr_based"
	TypeSupport    = "support_level"
	TypeTrailing   = "trailing_stop"
	TypeRiskReward = "risk_reward_ratio"
	TypeFibonacci  = "fibonacci"
	TypeTrailingTP = "trailing_take_profit"
)

const (
	fallbackStopPct = 0.08
	fallbackTPPct   = 0.15
)

const (
	supportLookback    = 20
	supportSwingSpan   = 2
	supportBuffer      = 0.98
	fibLookback        = 50
	trailingLookback   = 10
	trailingTakeProfit = 0.15
)

var fibLevels = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

func stopLevel(typ string, price, stop float64, desc, reasoning string) models.PriceLevel {
	return models.PriceLevel{
		Type:        typ,
		Price:       stop,
		Percentage:  (price - stop) / price * 100,
		Distance:    price - stop,
		Description: desc,
		Reasoning:   reasoning,
	}
}

func profitLevel(typ string, price, target float64, desc, reasoning string) models.PriceLevel {
	return models.PriceLevel{
		Type:        typ,
		Price:       target,
		Percentage:  (target - price) / price * 100,
		Distance:    target - price,
		Description: desc,
		Reasoning:   reasoning,
	}
}

func fixedStop(price, pct float64) models.PriceLevel {
	stop := price * (1 - pct)
	return stopLevel(TypeFixed, price, stop,
		fmt.Sprintf("fixed %.1f%% stop-loss", pct*100),
		fmt.Sprintf("fixed %.1f%% below the current price: exit if price falls to %.2f", pct*100, stop))
}

func fixedTakeProfit(price, pct float64) models.PriceLevel {
	target := price * (1 + pct)
	return profitLevel(TypeFixed, price, target,
		fmt.Sprintf("fixed %.1f%% take-profit", pct*100),
		fmt.Sprintf("fixed %.1f%% above the current price: take profit at %.2f", pct*100, target))
}

// atrStop places the stop multiplier x ATR(14) below price.
func atrStop(price float64, atr float64, hasATR bool, multiplier float64) models.PriceLevel {
	if !hasATR || atr <= 0 {
		l := fixedStop(price, fallbackStopPct)
		l.Reasoning += "; ATR(14) unavailable, fixed fallback used"
		return l
	}
	stop := price - atr*multiplier
	if stop <= 0 {
		l := fixedStop(price, fallbackStopPct)
		l.Reasoning += fmt.Sprintf("; %.1f x ATR(14) of %.2f exceeds the price, fixed fallback used", multiplier, atr)
		return l
	}
	return stopLevel(TypeATR, price, stop,
		fmt.Sprintf("%.1fx ATR stop-loss", multiplier),
		fmt.Sprintf("%.1f x ATR(14) of %.2f below price: exit if price falls to %.2f", multiplier, atr, stop))
}

// riskRewardTakeProfit sets the target ratio times the stop distance above price.
func riskRewardTakeProfit(price, stop, ratio float64) models.PriceLevel {
	risk := price - stop
	target := price + risk*ratio
	return profitLevel(TypeRiskReward, price, target,
		fmt.Sprintf("risk-reward 1:%.1f take-profit", ratio),
		fmt.Sprintf("stop risk of %.2f times %.1f: take profit at %.2f", risk, ratio, target))
}

// supportStop sits 2% below the highest swing-low support under price.
func supportStop(price float64, highs, lows []float64) models.PriceLevel {
	if len(lows) < supportLookback {
		l := fixedStop(price, fallbackStopPct)
		l.Reasoning += fmt.Sprintf("; fewer than %d bars for support analysis", supportLookback)
		return l
	}
	recent := lows[len(lows)-supportLookback:]
	swings := indicators.SwingLows(recent, supportSwingSpan)

	var stop float64
	var basis string
	switch {
	case len(swings) == 0:
		lowest, _, _ := indicators.SupportResistance(highs, lows, supportLookback)
		stop = lowest * supportBuffer
		basis = fmt.Sprintf("no swing low found: 2%% below the %d-day low %.2f", supportLookback, lowest)
	default:
		best := math.Inf(-1)
		for _, s := range swings {
			if s < price && s > best {
				best = s
			}
		}
		if math.IsInf(best, -1) {
			stop = price * (1 - fallbackStopPct)
			basis = "no swing-low support below price: fixed 8% fallback"
		} else {
			stop = best * supportBuffer
			basis = fmt.Sprintf("2%% below swing-low support %.2f", best)
		}
	}
	return stopLevel(TypeSupport, price, stop, "support-level stop-loss",
		fmt.Sprintf("%s: exit if price falls to %.2f", basis, stop))
}

// fibonacciTakeProfit targets the nearest Fibonacci level above price over 50 bars.
func fibonacciTakeProfit(price float64, highs, lows []float64) models.PriceLevel {
	if len(highs) < fibLookback {
		l := fixedTakeProfit(price, fallbackTPPct)
		l.Reasoning += fmt.Sprintf("; fewer than %d bars for Fibonacci analysis", fibLookback)
		return l
	}
	low, high, _ := indicators.SupportResistance(highs, lows, fibLookback)
	span := high - low

	best := math.Inf(1)
	for _, lvl := range fibLevels {
		var t float64
		if price > (high+low)/2 {
			t = low + span*(1+lvl)
		} else {
			t = high - span*lvl
		}
		if t > price && t < best {
			best = t
		}
	}
	basis := fmt.Sprintf("nearest Fibonacci level above price in the %.2f-%.2f range of the last %d bars", low, high, fibLookback)
	if math.IsInf(best, 1) {
		best = price * (1 + fallbackTPPct)
		basis = "no Fibonacci level above price: fixed 15% target"
	}
	return profitLevel(TypeFibonacci, price, best, "Fibonacci take-profit",
		fmt.Sprintf("%s: take profit at %.2f", basis, best))
}

// trailingStop trails pct below the highest of the last 10 highs and price.
func trailingStop(price float64, highs []float64, pct float64) models.PriceLevel {
	if len(highs) < trailingLookback {
		l := fixedStop(price, pct)
		l.Reasoning += fmt.Sprintf("; fewer than %d bars to trail from", trailingLookback)
		return l
	}
	peak := price
	for _, h := range highs[len(highs)-trailingLookback:] {
		peak = math.Max(peak, h)
	}
	stop := peak * (1 - pct)
	return stopLevel(TypeTrailing, price, stop,
		fmt.Sprintf("%.1f%% trailing stop", pct*100),
		fmt.Sprintf("trails the %d-day high %.2f by %.1f%%: exit if price falls to %.2f", trailingLookback, peak, pct*100, stop))
}

func trailingTakeProfitLevel(price, trail float64) models.PriceLevel {
	target := price * (1 + trailingTakeProfit)
	return profitLevel(TypeTrailingTP, price, target,
		fmt.Sprintf("%.1f%% trailing take-profit", trail*100),
		fmt.Sprintf("initial target %.2f (+15%%), raised with price and exited on a %.1f%% pullback", target, trail*100))
}
