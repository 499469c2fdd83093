package portfolio

import (
	"math"
	"sort"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/service"
	"SignalDesk/internal/services/strategies"
)

// z-score of the one-sided 95% quantile.
const var95Z = 1.645

// Project compounds value at rate for years.
func Project(value, rate float64, years int) float64 {
	return value * math.Pow(1+rate, float64(years))
}

// ExpectedReturns projects the priced part of the portfolio under s's static
// return profile. Weights are shares of the overall priced total.
func ExpectedReturns(a models.PortfolioAnalysis, s service.Strategy) models.ExpectedReturns {
	out := models.ExpectedReturns{StrategyID: s.ID()}
	total := a.TotalValue.Total
	if total <= 0 {
		return out
	}

	rate, variance := 0.0, 0.0
	for _, h := range a.Holdings {
		if h.Value == nil {
			continue
		}
		w := *h.Value / total
		sigma := strategies.Volatility(h.Symbol)
		rate += w * s.ExpectedReturn(h.Symbol)
		variance += w * w * sigma * sigma
	}
	vol := math.Sqrt(variance)

	out.ExpectedAnnualReturn = rate
	out.ExpectedVolatility = vol
	if vol > 0 {
		out.SharpeRatio = rate / vol
	}
	out.CurrentValue = total
	out.ProjectedValue1Y = Project(total, rate, 1)
	out.ProjectedValue3Y = Project(total, rate, 3)
	out.ProjectedValue5Y = Project(total, rate, 5)
	out.ProjectedValue10Y = Project(total, rate, 10)
	out.BestCase1Y = total * (1 + rate + vol)
	out.WorstCase1Y = total * (1 + rate - vol)
	out.VaR95_1Y = total * (1 + rate - var95Z*vol)
	return out
}

// Compare ranks strategies by expected return over risk score, descending.
// Ties keep the order of strats.
func Compare(a models.PortfolioAnalysis, strats []service.Strategy, horizonYears int) models.StrategyComparison {
	out := models.StrategyComparison{
		Comparison:  make(map[string]models.StrategyMetrics, len(strats)),
		Ranking:     make([]models.StrategyMetrics, 0, len(strats)),
		TimeHorizon: horizonYears,
	}
	for _, s := range strats {
		er := ExpectedReturns(a, s)
		score := s.RiskLevel().Score()
		m := models.StrategyMetrics{
			StrategyID:           s.ID(),
			DisplayName:          s.DisplayName(),
			RiskLevel:            s.RiskLevel(),
			ExpectedAnnualReturn: er.ExpectedAnnualReturn,
			ExpectedVolatility:   er.ExpectedVolatility,
			CurrentValue:         er.CurrentValue,
			ProjectedValue:       Project(er.CurrentValue, er.ExpectedAnnualReturn, horizonYears),
			RiskScore:            score,
			RiskAdjustedReturn:   er.ExpectedAnnualReturn / score,
		}
		out.Comparison[m.StrategyID] = m
		out.Ranking = append(out.Ranking, m)
	}
	sort.SliceStable(out.Ranking, func(i, j int) bool {
		return out.Ranking[i].RiskAdjustedReturn > out.Ranking[j].RiskAdjustedReturn
	})
	if len(out.Ranking) > 0 {
		out.BestStrategy = out.Ranking[0].StrategyID
	}
	return out
}
