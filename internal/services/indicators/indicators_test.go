package indicators

import (
	"errors"
	"math"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)
	}
	return out
}

func TestSMAMatchesTrailingMean(t *testing.T) {
	closes := wave(60)
	for _, window := range []int{1, 5, 20, 60} {
		got, err := SMA(closes, window)
		if err != nil {
			t.Fatalf("SMA(%d): %v", window, err)
		}
		if len(got) != len(closes) {
			t.Fatalf("SMA(%d) length %d, want %d", window, len(got), len(closes))
		}
		for i := range closes {
			if i < window-1 {
				if !math.IsNaN(got[i]) {
					t.Fatalf("SMA(%d)[%d] = %v, want NaN", window, i, got[i])
				}
				continue
			}
			sum := 0.0
			for _, v := range closes[i-window+1 : i+1] {
				sum += v
			}
			if want := sum / float64(window); math.Abs(got[i]-want) > 1e-9 {
				t.Fatalf("SMA(%d)[%d] = %v, want %v", window, i, got[i], want)
			}
		}
	}
}

func TestSMAInsufficientData(t *testing.T) {
	_, err := SMA([]float64{1, 2, 3}, 5)
	var ide *models.InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if ide.Need != 5 || ide.Have != 3 {
		t.Fatalf("unexpected error fields: %+v", ide)
	}
}

func TestRSI(t *testing.T) {
	rising := make([]float64, 30)
	flat := make([]float64, 30)
	for i := range rising {
		rising[i] = float64(i + 1)
		flat[i] = 42
	}

	cases := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{"strictly increasing", rising, 100},
		{"flat", flat, 50},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := RSI(c.closes, RSIWindow)
			if err != nil {
				t.Fatalf("RSI: %v", err)
			}
			for i := RSIWindow; i < len(got); i++ {
				if got[i] != c.want {
					t.Fatalf("RSI[%d] = %v, want %v", i, got[i], c.want)
				}
			}
			if !math.IsNaN(got[RSIWindow-1]) {
				t.Fatalf("RSI before window should be NaN")
			}
		})
	}

	t.Run("bounded", func(t *testing.T) {
		got, err := RSI(wave(200), RSIWindow)
		if err != nil {
			t.Fatalf("RSI: %v", err)
		}
		for i, v := range got[RSIWindow:] {
			if v < 0 || v > 100 {
				t.Fatalf("RSI[%d] = %v out of range", i+RSIWindow, v)
			}
		}
	})

	t.Run("falling", func(t *testing.T) {
		falling := make([]float64, 20)
		for i := range falling {
			falling[i] = float64(100 - i)
		}
		got, _ := RSI(falling, RSIWindow)
		if v := got[len(got)-1]; v != 0 {
			t.Fatalf("RSI of falling series = %v, want 0", v)
		}
	})

	t.Run("short", func(t *testing.T) {
		if _, err := RSI(make([]float64, RSIWindow), RSIWindow); err == nil {
			t.Fatalf("expected error for %d closes", RSIWindow)
		}
	})
}

func TestMACDAlignment(t *testing.T) {
	closes := wave(80)
	m, err := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	if err != nil {
		t.Fatalf("MACD: %v", err)
	}
	if len(m.MACD) != len(closes) || len(m.Signal) != len(closes) || len(m.Hist) != len(closes) {
		t.Fatalf("MACD lines must align with input")
	}
	if !math.IsNaN(m.MACD[MACDSlow-2]) || math.IsNaN(m.MACD[MACDSlow-1]) {
		t.Fatalf("MACD should start at index %d", MACDSlow-1)
	}
	first := MACDSlow + MACDSignal - 2
	if !math.IsNaN(m.Signal[first-1]) || math.IsNaN(m.Signal[first]) {
		t.Fatalf("signal should start at index %d", first)
	}
	last := len(closes) - 1
	if !approx(m.Hist[last], m.MACD[last]-m.Signal[last]) {
		t.Fatalf("hist must equal macd - signal")
	}

	if _, err := MACD(closes[:20], MACDFast, MACDSlow, MACDSignal); err == nil {
		t.Fatalf("expected error for short series")
	}
}

func TestBollingerFlatSeries(t *testing.T) {
	flat := make([]float64, 25)
	for i := range flat {
		flat[i] = 10
	}
	b, err := Bollinger(flat, BollingerWindow, BollingerK)
	if err != nil {
		t.Fatalf("Bollinger: %v", err)
	}
	last := len(flat) - 1
	if b.Upper[last] != 10 || b.Lower[last] != 10 || b.Middle[last] != 10 {
		t.Fatalf("flat series bands should collapse: %v %v %v", b.Upper[last], b.Middle[last], b.Lower[last])
	}
}

func TestATR(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := range closes {
		highs[i], lows[i], closes[i] = 12, 10, 11
	}
	atr, err := ATR(highs, lows, closes, ATRWindow)
	if err != nil {
		t.Fatalf("ATR: %v", err)
	}
	if v := atr[n-1]; !approx(v, 2) {
		t.Fatalf("ATR = %v, want 2", v)
	}
	if !math.IsNaN(atr[ATRWindow-2]) {
		t.Fatalf("ATR before window should be NaN")
	}

	// a gap up makes |high - prevClose| the true range
	closes[n-2] = 5
	tr := TrueRange(highs, lows, closes)
	if tr[n-1] != 7 {
		t.Fatalf("true range = %v, want 7", tr[n-1])
	}
}

func TestConsecutiveDays(t *testing.T) {
	cases := []struct {
		closes   []float64
		up, down int
	}{
		{[]float64{1, 2, 3, 4}, 3, 0},
		{[]float64{5, 4, 3, 4}, 1, 0},
		{[]float64{5, 6, 5, 4, 3}, 0, 3},
		{[]float64{1, 1}, 0, 0},
		{[]float64{1}, 0, 0},
	}
	for _, c := range cases {
		up, down := ConsecutiveDays(c.closes, 10)
		if up != c.up || down != c.down {
			t.Fatalf("ConsecutiveDays(%v) = %d,%d want %d,%d", c.closes, up, down, c.up, c.down)
		}
	}
}

func TestSwingLowsAndLevels(t *testing.T) {
	lows := []float64{10, 9, 8, 9, 10, 11, 10, 7, 10, 11}
	got := SwingLows(lows, 2)
	if len(got) != 2 || got[0] != 8 || got[1] != 7 {
		t.Fatalf("SwingLows = %v, want [8 7]", got)
	}

	highs := []float64{11, 12, 13, 12}
	sup, res, ok := SupportResistance(highs, lows[:4], 20)
	if !ok || sup != 8 || res != 13 {
		t.Fatalf("SupportResistance = %v,%v,%v", sup, res, ok)
	}
}

func TestVolumeRatio(t *testing.T) {
	vols := []float64{100, 100, 100, 400}
	r, ok := VolumeRatio(vols, 4)
	if !ok || !approx(r, 400.0/175.0) {
		t.Fatalf("VolumeRatio = %v,%v", r, ok)
	}
	if _, ok := VolumeRatio(vols, 5); ok {
		t.Fatalf("expected no ratio for short history")
	}
}

func TestRealizedVolatility(t *testing.T) {
	flat := []float64{10, 10, 10, 10, 10}
	v, ok := RealizedVolatility(LogReturns(flat), 4)
	if !ok || v != 0 {
		t.Fatalf("flat volatility = %v,%v", v, ok)
	}
	if _, ok := RealizedVolatility(LogReturns(flat), 10); ok {
		t.Fatalf("expected no volatility for short history")
	}
}

func TestComputeSkipsLongWindows(t *testing.T) {
	closes := wave(60)
	bars := make([]models.Candle, len(closes))
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.Candle{Date: day.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	set := Compute(models.NewPriceSeries("TEST", bars))

	for _, name := range []string{models.IndSMA20, models.IndSMA50, models.IndRSI14, models.IndMACD, models.IndBBUpper, models.IndATR14} {
		vals, ok := set[name]
		if !ok {
			t.Fatalf("%s missing", name)
		}
		if len(vals) != len(closes) {
			t.Fatalf("%s has length %d, want %d", name, len(vals), len(closes))
		}
	}
	if _, ok := set[models.IndSMA200]; ok {
		t.Fatalf("sma_200 must be absent for 60 bars")
	}
	if got := Compute(nil); len(got) != 0 {
		t.Fatalf("nil series should give an empty set")
	}
}
