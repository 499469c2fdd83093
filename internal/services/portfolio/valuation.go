// Package portfolio holds the pure portfolio math: valuation, projections,
// rebalancing and strategy ranking. Money sums use decimal arithmetic.
package portfolio

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SignalDesk/internal/domain/models"
)

// Quote is the resolved price of one symbol, or the error that prevented it.
type Quote struct {
	Price float64
	Err   error
}

// Analyze values holdings at the quoted prices. A holding without a usable
// quote is flagged and left out of every total.
func Analyze(holdings []models.Holding, quotes map[string]Quote, now time.Time) models.PortfolioAnalysis {
	out := models.PortfolioAnalysis{
		TotalValue: models.TotalValue{
			BySymbol: map[string]float64{},
			ByRegion: map[models.Region]float64{},
		},
		Allocation: map[string]float64{},
		Holdings:   make([]models.HoldingValue, 0, len(holdings)),
		Timestamp:  now,
	}

	regionTotals := map[models.Region]decimal.Decimal{}
	total, totalCost := decimal.Zero, decimal.Zero
	values := make([]decimal.Decimal, len(holdings))
	priced := make([]bool, len(holdings))

	for i, h := range holdings {
		region := regionOf(h)
		hv := models.HoldingValue{Holding: h}
		hv.Region = region
		cost := decimal.NewFromFloat(h.Quantity).Mul(decimal.NewFromFloat(h.CostBasis))
		hv.CostValue = cost.InexactFloat64()

		q, ok := quotes[h.Symbol]
		if !ok || q.Err != nil || q.Price <= 0 {
			err := &models.MissingPriceError{Symbol: h.Symbol, Err: q.Err}
			hv.Warning = err.Error()
			out.Warnings = append(out.Warnings, models.PriceWarning{Symbol: h.Symbol, Error: err.Error()})
			out.Holdings = append(out.Holdings, hv)
			continue
		}

		value := decimal.NewFromFloat(h.Quantity).Mul(decimal.NewFromFloat(q.Price))
		values[i], priced[i] = value, true
		regionTotals[region] = regionTotals[region].Add(value)
		total = total.Add(value)
		totalCost = totalCost.Add(cost)

		hv.CurrentPrice = models.Float(q.Price)
		hv.Value = models.Float(value.InexactFloat64())
		hv.UnrealizedPnL = models.Float(value.Sub(cost).InexactFloat64())
		out.TotalValue.BySymbol[h.Symbol] = value.InexactFloat64()
		out.Holdings = append(out.Holdings, hv)
	}

	for region, v := range regionTotals {
		out.TotalValue.ByRegion[region] = v.InexactFloat64()
	}
	out.TotalValue.Total = total.InexactFloat64()

	for i := range out.Holdings {
		if !priced[i] {
			continue
		}
		rt := regionTotals[out.Holdings[i].Region]
		if rt.IsZero() {
			continue
		}
		w := values[i].Div(rt).InexactFloat64()
		out.Holdings[i].Weight = models.Float(w)
		out.Allocation[out.Holdings[i].Symbol] = w
	}

	gain := total.Sub(totalCost)
	out.Performance = models.Performance{
		TotalCost:     totalCost.InexactFloat64(),
		TotalValue:    total.InexactFloat64(),
		TotalGainLoss: gain.InexactFloat64(),
	}
	if !totalCost.IsZero() {
		out.Performance.TotalReturnPct = gain.Div(totalCost).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	return out
}

func regionOf(h models.Holding) models.Region {
	if h.Region != "" {
		return h.Region
	}
	return models.RegionForSymbol(h.Symbol)
}

// MergeHolding adds h to holdings. An existing position in the same symbol is
// combined at the quantity-weighted average cost. The input slice is not modified.
func MergeHolding(holdings []models.Holding, h models.Holding) []models.Holding {
	h.Symbol = strings.ToUpper(strings.TrimSpace(h.Symbol))
	if h.Region == "" {
		h.Region = models.RegionForSymbol(h.Symbol)
	}
	out := make([]models.Holding, 0, len(holdings)+1)
	merged := false
	for _, cur := range holdings {
		if cur.Symbol != h.Symbol {
			out = append(out, cur)
			continue
		}
		q0, q1 := decimal.NewFromFloat(cur.Quantity), decimal.NewFromFloat(h.Quantity)
		qty := q0.Add(q1)
		cost := q0.Mul(decimal.NewFromFloat(cur.CostBasis)).Add(q1.Mul(decimal.NewFromFloat(h.CostBasis)))
		cur.Quantity = qty.InexactFloat64()
		if !qty.IsZero() {
			cur.CostBasis = cost.Div(qty).Round(4).InexactFloat64()
		}
		out = append(out, cur)
		merged = true
	}
	if !merged {
		out = append(out, h)
	}
	return out
}

// RemoveHolding drops symbol; found is false when it was not held.
func RemoveHolding(holdings []models.Holding, symbol string) (out []models.Holding, found bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	out = make([]models.Holding, 0, len(holdings))
	for _, h := range holdings {
		if h.Symbol == symbol {
			found = true
			continue
		}
		out = append(out, h)
	}
	return out, found
}

// SortedSymbols returns the keys of m in ascending order.
func SortedSymbols[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
