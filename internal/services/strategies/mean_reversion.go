package strategies

import (
	"fmt"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/service"
	"SignalDesk/internal/services/indicators"
)

// MeanReversion buys oversold dips and sells overbought rallies around the
// 20-day mean. The 200-day average acts as a trend filter: BUY is suppressed
// in a confirmed downtrend and SELL in a confirmed uptrend.
type MeanReversion struct {
	base
	p Params
}

var _ service.Strategy = (*MeanReversion)(nil)

func NewMeanReversion(p Params, opts ...Option) *MeanReversion {
	return &MeanReversion{
		base: newBase(IDMeanReversion, "Mean Reversion",
			"Trades deviations from the 20-day mean, suited to range-bound markets and oversold rebounds",
			models.RiskMedium, opts),
		p: p,
	}
}

func (s *MeanReversion) ExpectedReturn(symbol string) float64 {
	return BaseReturn(symbol) * meanReversionMultiplier(symbol)
}

const (
	mrBaseConfidence  = 0.4
	mrHoldConfidence  = 0.5
	mrDeviationBand   = 0.05
	mrNearLevel       = 0.03
	mrLevelWindow     = 20
	mrStreakLookback  = 10
	mrDownStreakBuy   = 3
	mrUpStreakSell    = 5
	mrBollingerLowPos = 0.1
	mrBollingerTopPos = 0.9
)

func (s *MeanReversion) Evaluate(symbol string, series *models.PriceSeries, ind models.IndicatorSet, mctx models.MarketContext) models.Signal {
	sig, price, ok := s.start(symbol, series, ind, mctx)
	if !ok {
		return sig
	}
	sma20, ierr := requireLatest(ind, models.IndSMA20, 20, series.Len())
	if ierr != nil {
		return insufficient(sig, ierr, 0.1)
	}
	rsi, ierr := requireLatest(ind, models.IndRSI14, 15, series.Len())
	if ierr != nil {
		return insufficient(sig, ierr, 0.1)
	}

	buy := price < sma20 && rsi < s.p.Oversold
	sell := price > sma20 && rsi > s.p.Overbought

	var notes []string
	penalty := 0.0
	sma200, hasTrend := ind.Latest(models.IndSMA200)
	if !hasTrend {
		notes = append(notes, "sma_200 unavailable: long-term trend filter skipped")
		penalty += 0.05
	} else {
		sma50, has50 := ind.Latest(models.IndSMA50)
		downtrend := price < sma200 && (!has50 || sma50 < sma200)
		uptrend := price > sma200 && (!has50 || sma50 > sma200)
		if buy && downtrend {
			buy = false
			notes = append(notes, fmt.Sprintf("BUY suppressed: confirmed downtrend (price %.2f below sma_200 %.2f)", price, sma200))
		}
		if sell && uptrend {
			sell = false
			notes = append(notes, fmt.Sprintf("SELL suppressed: confirmed uptrend (price %.2f above sma_200 %.2f)", price, sma200))
		}
	}
	if mctx.VIXLevel == nil {
		notes = append(notes, missingVIXReason())
		penalty += missingVIXPenalty
	}

	switch {
	case buy:
		sig.Signal = models.SignalBuy
		sig.Confidence, sig.Reasons = s.buyCase(series, ind, price, sma20, rsi, mctx)
		withRiskLevels(&sig, symbol, price, s.ExpectedReturn(symbol))
	case sell:
		sig.Signal = models.SignalSell
		sig.Confidence, sig.Reasons = s.sellCase(series, ind, price, sma20, rsi, mctx)
	default:
		sig.Signal = models.SignalHold
		sig.Confidence = mrHoldConfidence
		sig.Reasons = []string{fmt.Sprintf("price %.2f within normal range of sma_20 %.2f (RSI %.1f)", price, sma20, rsi)}
	}
	sig.Reasons = append(sig.Reasons, notes...)
	sig.Confidence = clamp(sig.Confidence-penalty, 0.1, 1)
	return sig
}

func bollingerPosition(ind models.IndicatorSet, price float64) (float64, bool) {
	upper, ok1 := ind.Latest(models.IndBBUpper)
	lower, ok2 := ind.Latest(models.IndBBLower)
	if !ok1 || !ok2 || upper <= lower {
		return 0, false
	}
	return (price - lower) / (upper - lower), true
}

func (s *MeanReversion) buyCase(series *models.PriceSeries, ind models.IndicatorSet, price, sma20, rsi float64, mctx models.MarketContext) (float64, []string) {
	conf := mrBaseConfidence + 0.2
	reasons := []string{fmt.Sprintf("RSI oversold (%.1f < %.0f) with price below sma_20", rsi, s.p.Oversold)}

	if dev := (price - sma20) / sma20; dev < -mrDeviationBand {
		reasons = append(reasons, fmt.Sprintf("price %.1f%% below sma_20", -dev*100))
		conf += 0.15
	}
	if rsi < s.p.ExtremeOversold {
		reasons = append(reasons, fmt.Sprintf("RSI extremely oversold (%.1f)", rsi))
		conf += 0.2
	}
	if pos, ok := bollingerPosition(ind, price); ok && pos < mrBollingerLowPos {
		reasons = append(reasons, fmt.Sprintf("price near lower Bollinger band (position %.0f%%)", pos*100))
		conf += 0.15
	}
	if support, _, ok := indicators.SupportResistance(series.Highs(), series.Lows(), mrLevelWindow); ok && support > 0 {
		if d := (price - support) / price; d < mrNearLevel {
			reasons = append(reasons, fmt.Sprintf("near 20-day support %.2f (%.1f%%)", support, d*100))
			conf += 0.1
		}
	}
	if mctx.VIXLevel != nil && *mctx.VIXLevel > models.VIXHigh {
		reasons = append(reasons, fmt.Sprintf("VIX elevated (%.1f): fear-driven rebound opportunity", *mctx.VIXLevel))
		conf += 0.1
	}
	if _, down := indicators.ConsecutiveDays(series.Closes(), mrStreakLookback); down >= mrDownStreakBuy {
		reasons = append(reasons, fmt.Sprintf("%d consecutive down days", down))
		conf += 0.1
	}
	return conf, reasons
}

func (s *MeanReversion) sellCase(series *models.PriceSeries, ind models.IndicatorSet, price, sma20, rsi float64, mctx models.MarketContext) (float64, []string) {
	conf := mrBaseConfidence + 0.2
	reasons := []string{fmt.Sprintf("RSI overbought (%.1f > %.0f) with price above sma_20", rsi, s.p.Overbought)}

	if dev := (price - sma20) / sma20; dev > mrDeviationBand {
		reasons = append(reasons, fmt.Sprintf("price %.1f%% above sma_20", dev*100))
		conf += 0.1
	}
	if rsi > s.p.ExtremeOverbought {
		reasons = append(reasons, fmt.Sprintf("RSI extremely overbought (%.1f)", rsi))
		conf += 0.2
	}
	if pos, ok := bollingerPosition(ind, price); ok && pos > mrBollingerTopPos {
		reasons = append(reasons, fmt.Sprintf("price near upper Bollinger band (position %.0f%%)", pos*100))
		conf += 0.15
	}
	if _, resistance, ok := indicators.SupportResistance(series.Highs(), series.Lows(), mrLevelWindow); ok {
		if d := (resistance - price) / price; d >= 0 && d < mrNearLevel {
			reasons = append(reasons, fmt.Sprintf("near 20-day resistance %.2f (%.1f%%)", resistance, d*100))
			conf += 0.1
		}
	}
	if mctx.VIXLevel != nil && *mctx.VIXLevel < models.VIXLow {
		reasons = append(reasons, fmt.Sprintf("VIX low (%.1f): consider taking profit", *mctx.VIXLevel))
		conf += 0.1
	}
	if up, _ := indicators.ConsecutiveDays(series.Closes(), mrStreakLookback); up >= mrUpStreakSell {
		reasons = append(reasons, fmt.Sprintf("%d consecutive up days", up))
		conf += 0.1
	}
	return conf, reasons
}
