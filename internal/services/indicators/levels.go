package indicators

import "math"

// VolumeRatio is the latest volume over the mean of the trailing window.
// Returns false when there is not enough history or the mean is zero.
func VolumeRatio(volumes []float64, window int) (float64, bool) {
	if window <= 0 || len(volumes) < window {
		return 0, false
	}
	sum := 0.0
	for _, v := range volumes[len(volumes)-window:] {
		sum += v
	}
	mean := sum / float64(window)
	if mean <= 0 {
		return 0, false
	}
	return volumes[len(volumes)-1] / mean, true
}

// SupportResistance returns the lowest low and highest high of the trailing window.
// Shorter input uses whatever is available.
func SupportResistance(highs, lows []float64, window int) (support, resistance float64, ok bool) {
	n := min(len(highs), len(lows))
	if n == 0 {
		return 0, 0, false
	}
	start := 0
	if window > 0 && n > window {
		start = n - window
	}
	support, resistance = math.Inf(1), math.Inf(-1)
	for i := start; i < n; i++ {
		support = math.Min(support, lows[i])
		resistance = math.Max(resistance, highs[i])
	}
	return support, resistance, true
}

// ConsecutiveDays counts trailing up closes and trailing down closes within
// the last lookback bars. At most one of the two is non-zero.
func ConsecutiveDays(closes []float64, lookback int) (up, down int) {
	start := 1
	if lookback > 0 && len(closes) > lookback {
		start = len(closes) - lookback + 1
	}
	for i := len(closes) - 1; i >= start; i-- {
		d := closes[i] - closes[i-1]
		switch {
		case d > 0 && down == 0:
			up++
		case d < 0 && up == 0:
			down++
		default:
			return up, down
		}
	}
	return up, down
}

// SwingLows returns lows strictly below the span bars on each side.
func SwingLows(lows []float64, span int) []float64 {
	var out []float64
	for i := span; i < len(lows)-span; i++ {
		pivot := true
		for j := i - span; j <= i+span; j++ {
			if j != i && lows[j] <= lows[i] {
				pivot = false
				break
			}
		}
		if pivot {
			out = append(out, lows[i])
		}
	}
	return out
}

// LogReturns computes r_t = ln(C_t / C_{t-1}); non-positive prices yield 0.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// TradingDaysPerYear annualises daily statistics.
const TradingDaysPerYear = 252.0

// RealizedVolatility is the annualised sample deviation of the last window log returns.
func RealizedVolatility(logReturns []float64, window int) (float64, bool) {
	if window <= 1 || len(logReturns) < window {
		return 0, false
	}
	sum, sum2 := 0.0, 0.0
	for _, r := range logReturns[len(logReturns)-window:] {
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * TradingDaysPerYear), true
}
