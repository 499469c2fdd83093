// Package indicators holds pure technical-indicator functions over daily closes.
// Every function returns a slice aligned with its input, with NaN where the
// rolling window is not yet full.
package indicators

import (
	"math"

	"SignalDesk/internal/domain/models"
)

// Default windows.
const (
	RSIWindow       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerWindow = 20
	BollingerK      = 2.0
	ATRWindow       = 14
	VolumeWindow    = 20
)

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA is the trailing arithmetic mean of window values ending at each index.
func SMA(values []float64, window int) ([]float64, error) {
	if window <= 0 || len(values) < window {
		return nil, &models.InsufficientDataError{Indicator: "sma", Need: window, Have: len(values)}
	}
	out := nanSlice(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out, nil
}

// RSI uses the simple mean of gains and losses over the trailing window of
// close-to-close deltas. A window with gains only is 100; a flat window is 50.
func RSI(closes []float64, window int) ([]float64, error) {
	if window <= 0 || len(closes) < window+1 {
		return nil, &models.InsufficientDataError{Indicator: "rsi", Need: window + 1, Have: len(closes)}
	}
	out := nanSlice(len(closes))
	for i := window; i < len(closes); i++ {
		gain, loss := 0.0, 0.0
		for j := i - window + 1; j <= i; j++ {
			d := closes[j] - closes[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		gain /= float64(window)
		loss /= float64(window)
		switch {
		case loss == 0 && gain == 0:
			out[i] = 50
		case loss == 0:
			out[i] = 100
		default:
			rs := gain / loss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out, nil
}

// EMA seeds with the first value and smooths with alpha = 2/(span+1).
// Entries before span-1 are NaN.
func EMA(values []float64, span int) ([]float64, error) {
	if span <= 0 || len(values) < span {
		return nil, &models.InsufficientDataError{Indicator: "ema", Need: span, Have: len(values)}
	}
	return emaFrom(values, span, 0), nil
}

// emaFrom runs the recursion starting at index start and marks the first
// span-1 outputs undefined.
func emaFrom(values []float64, span, start int) []float64 {
	out := nanSlice(len(values))
	alpha := 2.0 / float64(span+1)
	prev := values[start]
	for i := start; i < len(values); i++ {
		if i > start {
			prev = alpha*values[i] + (1-alpha)*prev
		}
		if i >= start+span-1 {
			out[i] = prev
		}
	}
	return out
}

// MACDResult holds the three aligned MACD lines.
type MACDResult struct {
	MACD   []float64
	Signal []float64
	Hist   []float64
}

// MACD computes fast EMA minus slow EMA and its signal EMA.
func MACD(closes []float64, fast, slow, signal int) (*MACDResult, error) {
	need := slow + signal - 1
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < need {
		return nil, &models.InsufficientDataError{Indicator: "macd", Need: need, Have: len(closes)}
	}
	fastLine := emaFrom(closes, fast, 0)
	slowLine := emaFrom(closes, slow, 0)

	line := nanSlice(len(closes))
	for i := slow - 1; i < len(closes); i++ {
		line[i] = fastLine[i] - slowLine[i]
	}
	sig := emaFrom(line, signal, slow-1)
	hist := nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return &MACDResult{MACD: line, Signal: sig, Hist: hist}, nil
}

// BandsResult holds aligned Bollinger bands.
type BandsResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger uses the sample standard deviation over the window.
func Bollinger(closes []float64, window int, k float64) (*BandsResult, error) {
	if window < 2 {
		return nil, &models.InsufficientDataError{Indicator: "bollinger", Need: 2, Have: len(closes)}
	}
	mid, err := SMA(closes, window)
	if err != nil {
		return nil, &models.InsufficientDataError{Indicator: "bollinger", Need: window, Have: len(closes)}
	}
	upper := nanSlice(len(closes))
	lower := nanSlice(len(closes))
	for i := window - 1; i < len(closes); i++ {
		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := closes[j] - mid[i]
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(window-1))
		upper[i] = mid[i] + k*sd
		lower[i] = mid[i] - k*sd
	}
	return &BandsResult{Upper: upper, Middle: mid, Lower: lower}, nil
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|); the first bar uses high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		tr := highs[i] - lows[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(highs[i]-closes[i-1]))
			tr = math.Max(tr, math.Abs(lows[i]-closes[i-1]))
		}
		out[i] = tr
	}
	return out
}

// ATR is the rolling mean of the true range.
func ATR(highs, lows, closes []float64, window int) ([]float64, error) {
	if len(highs) != len(closes) || len(lows) != len(closes) {
		return nil, &models.InsufficientDataError{Indicator: "atr", Need: len(closes), Have: min(len(highs), len(lows))}
	}
	out, err := SMA(TrueRange(highs, lows, closes), window)
	if err != nil {
		return nil, &models.InsufficientDataError{Indicator: "atr", Need: window, Have: len(closes)}
	}
	return out, nil
}
