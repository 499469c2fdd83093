package strategies

import (
	"fmt"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/service"
	"SignalDesk/internal/services/indicators"
)

// Momentum buys breakouts to a new N-day high while the 20-day average is
// rising and sells when price breaks below the trailing support.
type Momentum struct {
	base
	p Params
}

var _ service.Strategy = (*Momentum)(nil)

func NewMomentum(p Params, opts ...Option) *Momentum {
	if p.MomentumLookback <= 0 {
		p.MomentumLookback = DefaultParams().MomentumLookback
	}
	if p.SupportWindow <= 0 {
		p.SupportWindow = DefaultParams().SupportWindow
	}
	return &Momentum{
		base: newBase(IDMomentum, "Momentum",
			"Follows breakouts confirmed by a rising 20-day average, RSI and MACD; suited to trending markets",
			models.RiskHigh, opts),
		p: p,
	}
}

func (s *Momentum) ExpectedReturn(symbol string) float64 {
	return BaseReturn(symbol) * momentumMultiplier(symbol)
}

const (
	momentumBaseConfidence  = 0.5
	momentumHoldConfidence  = 0.5
	momentumShortConfidence = 0.2
	// bars between the two sma_20 readings compared for slope
	smaSlopeBars     = 3
	highVolumeRatio  = 1.5
	panicBuyDampener = 0.7
)

func (s *Momentum) Evaluate(symbol string, series *models.PriceSeries, ind models.IndicatorSet, mctx models.MarketContext) models.Signal {
	sig, price, ok := s.start(symbol, series, ind, mctx)
	if !ok {
		return sig
	}
	n := series.Len()
	need := max(s.p.MomentumLookback+1, s.p.SupportWindow+1, 20+smaSlopeBars)
	if n < need {
		return insufficient(sig, &models.InsufficientDataError{Indicator: "momentum window", Need: need, Have: n}, momentumShortConfidence)
	}
	smaNow, ok1 := ind.Latest(models.IndSMA20)
	smaPrev, ok2 := ind.At(models.IndSMA20, -1-smaSlopeBars)
	if !ok1 || !ok2 {
		return insufficient(sig, &models.InsufficientDataError{Indicator: models.IndSMA20, Need: need, Have: n}, momentumShortConfidence)
	}

	highs, lows := series.Highs(), series.Lows()
	priorHigh := highs[n-1-s.p.MomentumLookback]
	for _, h := range highs[n-1-s.p.MomentumLookback : n-1] {
		priorHigh = max(priorHigh, h)
	}
	support := lows[n-1-s.p.SupportWindow]
	for _, l := range lows[n-1-s.p.SupportWindow : n-1] {
		support = min(support, l)
	}
	newHigh := price > priorHigh
	rising := smaNow > smaPrev

	switch {
	case newHigh && rising:
		sig.Signal = models.SignalBuy
		sig.Confidence, sig.Reasons = s.buyCase(series, ind, price, priorHigh, smaNow, mctx)
		withRiskLevels(&sig, symbol, price, s.ExpectedReturn(symbol))
	case price < support:
		sig.Signal = models.SignalSell
		sig.Confidence, sig.Reasons = s.sellCase(series, ind, price, support, smaNow, mctx)
	default:
		sig.Signal = models.SignalHold
		sig.Confidence = momentumHoldConfidence
		reason := "momentum unclear: no breakout and support intact"
		if newHigh {
			reason = fmt.Sprintf("new %d-day high but sma_20 is not rising", s.p.MomentumLookback)
		}
		sig.Reasons = []string{reason}
	}
	if mctx.VIXLevel == nil {
		sig.Reasons = append(sig.Reasons, missingVIXReason())
		sig.Confidence -= missingVIXPenalty
	}
	sig.Confidence = clamp(sig.Confidence, 0.1, 1)
	return sig
}

func (s *Momentum) buyCase(series *models.PriceSeries, ind models.IndicatorSet, price, priorHigh, sma20 float64, mctx models.MarketContext) (float64, []string) {
	conf := momentumBaseConfidence
	reasons := []string{
		fmt.Sprintf("new %d-day high: %.2f above %.2f", s.p.MomentumLookback, price, priorHigh),
		"sma_20 rising",
	}
	if sma50, ok := ind.Latest(models.IndSMA50); ok && sma20 > sma50 {
		reasons = append(reasons, "sma_20 above sma_50")
		conf += 0.1
	}
	if rsi, ok := ind.Latest(models.IndRSI14); ok {
		switch {
		case rsi > 40 && rsi < 70:
			reasons = append(reasons, fmt.Sprintf("RSI in healthy momentum range (%.1f)", rsi))
			conf += 0.15
		case rsi > 80:
			reasons = append(reasons, fmt.Sprintf("RSI extremely overbought (%.1f): breakout may be stretched", rsi))
			conf -= 0.1
		}
	}
	if macd, ok := ind.Latest(models.IndMACD); ok {
		if sigLine, ok := ind.Latest(models.IndMACDSignal); ok && macd > sigLine && macd > 0 {
			reasons = append(reasons, "MACD above signal and positive")
			conf += 0.15
		}
	}
	if ratio, ok := indicators.VolumeRatio(series.Volumes(), indicators.VolumeWindow); ok && ratio > highVolumeRatio {
		reasons = append(reasons, fmt.Sprintf("volume confirms breakout (%.1fx average)", ratio))
		conf += 0.1
	}
	if mctx.VIXLevel != nil && *mctx.VIXLevel > models.VIXPanic {
		reasons = append(reasons, fmt.Sprintf("VIX at panic level (%.1f): buy confidence reduced", *mctx.VIXLevel))
		conf *= panicBuyDampener
	}
	return conf, reasons
}

func (s *Momentum) sellCase(series *models.PriceSeries, ind models.IndicatorSet, price, support, sma20 float64, mctx models.MarketContext) (float64, []string) {
	conf := momentumBaseConfidence
	reasons := []string{fmt.Sprintf("price %.2f broke below %d-day support %.2f", price, s.p.SupportWindow, support)}
	if price < sma20 {
		reasons = append(reasons, "price below sma_20")
		conf += 0.1
	}
	if sma50, ok := ind.Latest(models.IndSMA50); ok && sma20 < sma50 {
		reasons = append(reasons, "sma_20 below sma_50")
		conf += 0.1
	}
	if macd, ok := ind.Latest(models.IndMACD); ok {
		if sigLine, ok := ind.Latest(models.IndMACDSignal); ok && macd < sigLine {
			reasons = append(reasons, "MACD below signal")
			conf += 0.1
		}
	}
	if ratio, ok := indicators.VolumeRatio(series.Volumes(), indicators.VolumeWindow); ok && ratio > highVolumeRatio {
		reasons = append(reasons, fmt.Sprintf("breakdown on heavy volume (%.1fx average)", ratio))
		conf += 0.1
	}
	if mctx.VIXLevel != nil && *mctx.VIXLevel < models.VIXLow {
		reasons = append(reasons, fmt.Sprintf("VIX low (%.1f): market may be overheated", *mctx.VIXLevel))
		conf += 0.1
	}
	return conf, reasons
}
