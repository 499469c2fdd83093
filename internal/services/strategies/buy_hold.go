package strategies

import (
	"fmt"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/service"
)

// BuyHold never trades: it always reports HOLD at full confidence and only
// annotates accumulation opportunities.
type BuyHold struct {
	base
}

var _ service.Strategy = (*BuyHold)(nil)

// buyHoldConfidence is fixed; the strategy's answer never depends on the reading.
const buyHoldConfidence = 1.0

func NewBuyHold(opts ...Option) *BuyHold {
	return &BuyHold{base: newBase(IDBuyHold, "Buy and Hold",
		"Long-term holding with periodic accumulation on weakness",
		models.RiskLow, opts)}
}

func (s *BuyHold) ExpectedReturn(symbol string) float64 {
	return BaseReturn(symbol) * buyHoldMultiplier(symbol)
}

func (s *BuyHold) Evaluate(symbol string, series *models.PriceSeries, ind models.IndicatorSet, mctx models.MarketContext) models.Signal {
	sig, price, ok := s.start(symbol, series, ind, mctx)
	if !ok {
		return sig
	}
	sig.Signal = models.SignalHold
	sig.Confidence = buyHoldConfidence
	sig.Reasons = []string{"long-term buy and hold: keep the position through market swings"}

	rsi, hasRSI := ind.Latest(models.IndRSI14)
	_, hasSMA := ind.Latest(models.IndSMA20)
	if !hasRSI || !hasSMA {
		sig.Reasons = append(sig.Reasons, "sma_20 or rsi_14 unavailable for this history")
	}
	if hasRSI && rsi < 30 {
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("RSI oversold (%.1f): accumulation window", rsi))
	}
	if sma200, ok := ind.Latest(models.IndSMA200); ok && price < sma200 {
		sig.Reasons = append(sig.Reasons, "price below sma_200: long-term trend weakening")
	}
	if mctx.VIXLevel != nil && *mctx.VIXLevel > models.VIXHigh {
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("VIX elevated (%.1f): consider adding on weakness", *mctx.VIXLevel))
	}
	return sig
}
