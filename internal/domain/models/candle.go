package models

import (
	"fmt"
	"time"
)

// Candle represents one daily OHLCV bar.
type Candle struct {
	Date   time.Time `json:"date"`
	Symbol string    `json:"symbol"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is the chronological daily history of one symbol.
// It is treated as immutable once returned by a PriceSource.
type PriceSeries struct {
	Symbol string   `json:"symbol"`
	Bars   []Candle `json:"bars"`
}

// NewPriceSeries wraps bars without copying them. The caller must not modify bars afterwards.
func NewPriceSeries(symbol string, bars []Candle) *PriceSeries {
	return &PriceSeries{Symbol: symbol, Bars: bars}
}

func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar.
func (s *PriceSeries) Last() (Candle, bool) {
	if s.Len() == 0 {
		return Candle{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// LastClose returns the latest closing price.
func (s *PriceSeries) LastClose() (float64, bool) {
	c, ok := s.Last()
	if !ok {
		return 0, false
	}
	return c.Close, true
}

func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.Bars[i].Close
	}
	return out
}

func (s *PriceSeries) Highs() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.Bars[i].High
	}
	return out
}

func (s *PriceSeries) Lows() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.Bars[i].Low
	}
	return out
}

func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.Bars[i].Volume
	}
	return out
}

func (s *PriceSeries) Dates() []time.Time {
	out := make([]time.Time, s.Len())
	for i := range out {
		out[i] = s.Bars[i].Date
	}
	return out
}

// Validate checks ordering: strictly increasing calendar dates.
func (s *PriceSeries) Validate() error {
	if s.Len() == 0 {
		return fmt.Errorf("empty price series")
	}
	for i := 1; i < len(s.Bars); i++ {
		prev := s.Bars[i-1].Date
		cur := s.Bars[i].Date
		if !cur.After(prev) {
			return fmt.Errorf("bar %d (%s) not after %s", i, cur.Format(time.DateOnly), prev.Format(time.DateOnly))
		}
	}
	return nil
}
