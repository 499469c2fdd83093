package risk

import (
	"math"
	"strings"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/services/indicators"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func barSeries(highs, lows, closes []float64) *models.PriceSeries {
	bars := make([]models.Candle, len(closes))
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range closes {
		bars[i] = models.Candle{Date: day.AddDate(0, 0, i), Open: closes[i], High: highs[i], Low: lows[i], Close: closes[i], Volume: 1}
	}
	return models.NewPriceSeries("TEST", bars)
}

func flatSeries(n int, price, halfRange float64) *models.PriceSeries {
	h, l, c := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := range c {
		h[i], l[i], c[i] = price+halfRange, price-halfRange, price
	}
	return barSeries(h, l, c)
}

func TestPlansForRecommendsByRiskLevel(t *testing.T) {
	m := NewManager()
	series := flatSeries(60, 100, 1)
	ind := indicators.Compute(series)

	cases := []struct {
		level models.RiskLevel
		want  string
	}{
		{models.RiskLow, PlanConservative},
		{models.RiskMedium, PlanBalanced},
		{models.RiskHigh, PlanAggressive},
	}
	for _, c := range cases {
		t.Run(string(c.level), func(t *testing.T) {
			got, err := m.PlansFor("VOO", 100, series, ind, c.level)
			if err != nil {
				t.Fatalf("PlansFor: %v", err)
			}
			if len(got.Plans) < 3 {
				t.Fatalf("want at least three plans, got %d", len(got.Plans))
			}
			if got.Recommendation.RecommendedPlan != c.want {
				t.Fatalf("recommended %q, want %q", got.Recommendation.RecommendedPlan, c.want)
			}
			if !strings.Contains(got.Recommendation.Reason, "exact match") {
				t.Fatalf("reason must name the criterion: %q", got.Recommendation.Reason)
			}
			if got.Recommendation.Alternative == "" {
				t.Fatalf("alternative plan missing")
			}
			for key, p := range got.Plans {
				if p.StopLoss.Reasoning == "" || p.TakeProfit.Reasoning == "" {
					t.Fatalf("plan %s lacks reasoning", key)
				}
			}
		})
	}
}

func TestBalancedPlanScalesWithATR(t *testing.T) {
	m := NewManager()
	series := flatSeries(30, 100, 1)
	ind := indicators.Compute(series)

	got, err := m.PlansFor("VOO", 100, series, ind, models.RiskMedium)
	if err != nil {
		t.Fatalf("PlansFor: %v", err)
	}
	bal := got.Plans[PlanBalanced]
	if bal.StopLoss.Type != TypeATR {
		t.Fatalf("stop type = %s, want %s", bal.StopLoss.Type, TypeATR)
	}
	// ATR is 2, medium multiplier 2.0, ratio 1.8
	if !approx(bal.StopLoss.Price, 96) || !approx(bal.TakeProfit.Price, 107.2) {
		t.Fatalf("balanced stop/target = %v/%v, want 96/107.2", bal.StopLoss.Price, bal.TakeProfit.Price)
	}
	if !approx(bal.StopLoss.Percentage, 4) || !approx(bal.StopLoss.Distance, 4) {
		t.Fatalf("stop percentage/distance = %v/%v", bal.StopLoss.Percentage, bal.StopLoss.Distance)
	}
}

func TestATRStopStaysPositive(t *testing.T) {
	tests := []struct {
		name     string
		atr      float64
		wantType string
		wantStop float64
	}{
		{"normal", 2, TypeATR, 95},
		{"distance equals price", 40, TypeFixed, 92},
		{"distance above price", 60, TypeFixed, 92},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := atrStop(100, tt.atr, true, 2.5)
			if l.Type != tt.wantType || !approx(l.Price, tt.wantStop) {
				t.Fatalf("got %s stop %.2f, want %s %.2f", l.Type, l.Price, tt.wantType, tt.wantStop)
			}
			if l.Price <= 0 {
				t.Fatalf("stop must stay positive, got %.2f", l.Price)
			}
		})
	}
}

func TestShortHistoryFallsBackToFixedLevels(t *testing.T) {
	m := NewManager()
	series := flatSeries(5, 50, 0.5)
	got, err := m.PlansFor("NVDA", 50, series, indicators.Compute(series), models.RiskMedium)
	if err != nil {
		t.Fatalf("PlansFor: %v", err)
	}
	for _, key := range []string{PlanBalanced, PlanTechnical} {
		if p := got.Plans[key]; p.StopLoss.Type != TypeFixed || !approx(p.StopLoss.Price, 46) {
			t.Fatalf("%s stop = %+v, want fixed 8%%", key, p.StopLoss)
		}
	}
	if tp := got.Plans[PlanTechnical].TakeProfit; tp.Type != TypeFixed || !approx(tp.Price, 57.5) {
		t.Fatalf("technical take-profit = %+v, want fixed 15%%", tp)
	}
	if sl := got.Plans[PlanAggressive].StopLoss; sl.Type != TypeFixed || !approx(sl.Price, 46) {
		t.Fatalf("aggressive stop = %+v, want fixed trail pct", sl)
	}
	if got.RealizedVolatility != nil {
		t.Fatalf("volatility needs %d returns", volatilityWindow)
	}
}

func TestPlansForRejectsBadInput(t *testing.T) {
	m := NewManager()
	series := flatSeries(5, 50, 0.5)
	if _, err := m.PlansFor("X", 0, series, nil, models.RiskLow); err == nil {
		t.Fatalf("expected error for zero price")
	}
	if _, err := m.PlansFor("X", 50, series, nil, models.RiskLevel("extreme")); err == nil {
		t.Fatalf("expected error for unknown risk level")
	}
}

func TestRecommendNearestWithTieBreak(t *testing.T) {
	plans := map[string]models.RiskPlan{
		PlanConservative: {RiskLevel: models.RiskLow},
		PlanAggressive:   {RiskLevel: models.RiskHigh},
	}
	rec := Recommend(plans, PlanOrder, models.RiskMedium)
	if rec.RecommendedPlan != PlanConservative {
		t.Fatalf("tie must go to the earlier plan, got %q", rec.RecommendedPlan)
	}
	if !strings.Contains(rec.Reason, "nearest match") {
		t.Fatalf("reason must name the criterion: %q", rec.Reason)
	}

	only := map[string]models.RiskPlan{PlanAggressive: {RiskLevel: models.RiskHigh}}
	if rec := Recommend(only, PlanOrder, models.RiskLow); rec.RecommendedPlan != PlanAggressive {
		t.Fatalf("single plan must be chosen, got %q", rec.RecommendedPlan)
	}
	if rec := Recommend(nil, PlanOrder, models.RiskLow); rec.RecommendedPlan != "" {
		t.Fatalf("no plans must yield no recommendation")
	}
}

func TestSupportStop(t *testing.T) {
	lows := make([]float64, 20)
	for i := range lows {
		lows[i] = 100
	}
	lows[10] = 95

	if got := supportStop(100, lows, lows); got.Type != TypeSupport || !approx(got.Price, 95*0.98) {
		t.Fatalf("swing support stop = %+v", got)
	}
	if got := supportStop(90, lows, lows); !approx(got.Price, 90*0.92) {
		t.Fatalf("no support below price: stop = %v, want %v", got.Price, 90*0.92)
	}

	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = 80 + float64(i)
	}
	if got := supportStop(100, rising, rising); !approx(got.Price, 80*0.98) {
		t.Fatalf("no swing low: stop = %v, want %v", got.Price, 80*0.98)
	}
}

func TestFibonacciTakeProfit(t *testing.T) {
	highs := make([]float64, 50)
	lows := make([]float64, 50)
	for i := range highs {
		highs[i], lows[i] = 100, 100
	}
	highs[5], lows[20] = 110, 90

	// above the midpoint: extension targets low + range*(1+level)
	if got := fibonacciTakeProfit(105, highs, lows); !approx(got.Price, 90+20*1.236) {
		t.Fatalf("uptrend target = %v, want %v", got.Price, 90+20*1.236)
	}
	// below the midpoint: retracement targets high - range*level
	if got := fibonacciTakeProfit(95, highs, lows); !approx(got.Price, 110-20*0.618) {
		t.Fatalf("retracement target = %v, want %v", got.Price, 110-20*0.618)
	}
}

func TestTrailingStopTracksRecentHigh(t *testing.T) {
	highs := []float64{90, 91, 92, 93, 94, 95, 96, 97, 98, 99}
	if got := trailingStop(100, highs, 0.08); !approx(got.Price, 92) {
		t.Fatalf("price above recent high: stop = %v, want 92", got.Price)
	}
	highs[3] = 120
	if got := trailingStop(100, highs, 0.08); !approx(got.Price, 120*0.92) {
		t.Fatalf("stop = %v, want %v", got.Price, 120*0.92)
	}
}
