package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"SignalDesk/internal/domain/models"
)

// weightPlaces is the precision deviations are compared at.
const weightPlaces = 10

// Bands controls when drift becomes a suggestion.
type Bands struct {
	// Tolerance is the absolute weight deviation that must be exceeded.
	Tolerance float64
	// Action marks deviations above it as high priority.
	Action float64
	// MinAmount suppresses trades smaller than this in the region's currency.
	MinAmount float64
}

func DefaultBands() Bands {
	return Bands{Tolerance: 0.05, Action: 0.08, MinAmount: 100}
}

var regionOrder = []models.Region{models.RegionUS, models.RegionTW}

// Rebalance compares region-relative weights with targets and suggests one
// trade per drifting symbol. Targets for symbols not held count as weight 0.
// Unpriced holdings are skipped. Output is grouped by region, largest drift first.
func Rebalance(a models.PortfolioAnalysis, targets models.TargetWeights, b Bands) []models.RebalanceSuggestion {
	type row struct {
		symbol  string
		current float64
	}
	byRegion := map[models.Region][]row{}
	seen := map[string]bool{}
	unpriced := map[string]bool{}
	for _, h := range a.Holdings {
		if h.Weight == nil {
			unpriced[h.Symbol] = true
			continue
		}
		byRegion[h.Region] = append(byRegion[h.Region], row{h.Symbol, *h.Weight})
		seen[h.Symbol] = true
	}
	for region, tw := range targets {
		for _, sym := range SortedSymbols(tw) {
			if !seen[sym] && !unpriced[sym] {
				byRegion[region] = append(byRegion[region], row{sym, 0})
			}
		}
	}

	tolerance := decimal.NewFromFloat(b.Tolerance)
	action := decimal.NewFromFloat(b.Action)
	minAmount := decimal.NewFromFloat(b.MinAmount)

	var out []models.RebalanceSuggestion
	for _, region := range orderedRegions(byRegion) {
		regionTotal := decimal.NewFromFloat(a.TotalValue.ByRegion[region])
		var group []models.RebalanceSuggestion
		for _, r := range byRegion[region] {
			target := targets[region][r.symbol]
			d := decimal.NewFromFloat(r.current).Sub(decimal.NewFromFloat(target)).Round(weightPlaces)
			if d.Abs().LessThanOrEqual(tolerance) {
				continue
			}
			amount := regionTotal.Mul(d.Abs()).Round(2)
			if amount.LessThan(minAmount) {
				continue
			}
			dev := d.InexactFloat64()
			s := models.RebalanceSuggestion{
				Symbol:        r.symbol,
				Region:        region,
				Amount:        amount.InexactFloat64(),
				CurrentWeight: r.current,
				TargetWeight:  target,
				Deviation:     dev,
				Priority:      "medium",
			}
			if d.Abs().GreaterThan(action) {
				s.Priority = "high"
			}
			if dev > 0 {
				s.Action = models.RebalanceSell
				s.Reason = fmt.Sprintf("%s is above its %.1f%% target at %.1f%% of the %s portfolio", r.symbol, target*100, r.current*100, region)
			} else {
				s.Action = models.RebalanceBuy
				s.Reason = fmt.Sprintf("%s is below its %.1f%% target at %.1f%% of the %s portfolio", r.symbol, target*100, r.current*100, region)
			}
			group = append(group, s)
		}
		sort.SliceStable(group, func(i, j int) bool {
			di, dj := math.Abs(group[i].Deviation), math.Abs(group[j].Deviation)
			if di != dj {
				return di > dj
			}
			return group[i].Symbol < group[j].Symbol
		})
		out = append(out, group...)
	}
	return out
}

// orderedRegions lists US and TW first, then any other region alphabetically.
func orderedRegions[V any](m map[models.Region]V) []models.Region {
	out := make([]models.Region, 0, len(m))
	known := map[models.Region]bool{}
	for _, r := range regionOrder {
		known[r] = true
		if _, ok := m[r]; ok {
			out = append(out, r)
		}
	}
	var rest []models.Region
	for r := range m {
		if !known[r] {
			rest = append(rest, r)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}
