package indicators

import "SignalDesk/internal/domain/models"

// Compute builds the full IndicatorSet for a series. Indicators whose window
// exceeds the history are left out rather than failing the whole set.
func Compute(series *models.PriceSeries) models.IndicatorSet {
	set := models.IndicatorSet{}
	if series.Len() == 0 {
		return set
	}
	closes := series.Closes()

	for name, w := range map[string]int{
		models.IndSMA10:  10,
		models.IndSMA20:  20,
		models.IndSMA50:  50,
		models.IndSMA200: 200,
	} {
		if v, err := SMA(closes, w); err == nil {
			set[name] = v
		}
	}
	if v, err := RSI(closes, RSIWindow); err == nil {
		set[models.IndRSI14] = v
	}
	if m, err := MACD(closes, MACDFast, MACDSlow, MACDSignal); err == nil {
		set[models.IndMACD] = m.MACD
		set[models.IndMACDSignal] = m.Signal
		set[models.IndMACDHist] = m.Hist
	}
	if b, err := Bollinger(closes, BollingerWindow, BollingerK); err == nil {
		set[models.IndBBUpper] = b.Upper
		set[models.IndBBMiddle] = b.Middle
		set[models.IndBBLower] = b.Lower
	}
	if v, err := ATR(series.Highs(), series.Lows(), closes, ATRWindow); err == nil {
		set[models.IndATR14] = v
	}
	return set
}
