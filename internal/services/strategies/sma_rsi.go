package strategies

import (
	"fmt"
	"math"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/service"
)

// SMARSI trades the RSI band against the 20-day average.
type SMARSI struct {
	base
}

var _ service.Strategy = (*SMARSI)(nil)

func NewSMARSI(opts ...Option) *SMARSI {
	return &SMARSI{base: newBase(IDSMARSI, "SMA20 + RSI",
		"Buys when price is below the 20-day average with RSI under 30, sells above it with RSI over 70",
		models.RiskMedium, opts)}
}

func (s *SMARSI) ExpectedReturn(symbol string) float64 { return BaseReturn(symbol) }

// Confidence blends how far RSI sits from 50 with how far price sits from the average.
func smaRSIConfidence(price, sma, rsi float64) float64 {
	return clamp(0.5+math.Abs(rsi-50)/100+math.Abs(price-sma)/sma, 0, 1)
}

func (s *SMARSI) Evaluate(symbol string, series *models.PriceSeries, ind models.IndicatorSet, mctx models.MarketContext) models.Signal {
	sig, price, ok := s.start(symbol, series, ind, mctx)
	if !ok {
		return sig
	}
	sma, ierr := requireLatest(ind, models.IndSMA20, 20, series.Len())
	if ierr != nil {
		return insufficient(sig, ierr, 0.1)
	}
	rsi, ierr := requireLatest(ind, models.IndRSI14, 15, series.Len())
	if ierr != nil {
		return insufficient(sig, ierr, 0.1)
	}

	sig.Confidence = smaRSIConfidence(price, sma, rsi)
	switch {
	case price < sma && rsi < 30:
		sig.Signal = models.SignalBuy
		sig.Reasons = []string{
			fmt.Sprintf("price %.2f below sma_20 %.2f", price, sma),
			fmt.Sprintf("RSI oversold (%.1f < 30)", rsi),
		}
		withRiskLevels(&sig, symbol, price, s.ExpectedReturn(symbol))
	case price > sma && rsi > 70:
		sig.Signal = models.SignalSell
		sig.Reasons = []string{
			fmt.Sprintf("price %.2f above sma_20 %.2f", price, sma),
			fmt.Sprintf("RSI overbought (%.1f > 70)", rsi),
		}
	default:
		sig.Signal = models.SignalHold
		sig.Reasons = []string{fmt.Sprintf("no band signal: price %.2f vs sma_20 %.2f, RSI %.1f", price, sma, rsi)}
	}
	return sig
}
