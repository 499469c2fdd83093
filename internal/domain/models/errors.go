package models

import (
	"errors"
	"fmt"
)

// ErrNoActiveStrategy is returned when the strategy registry is empty.
var ErrNoActiveStrategy = errors.New("no active strategy: registry is empty")

// InsufficientDataError means a rolling window is longer than the available history.
type InsufficientDataError struct {
	Indicator string
	Need      int
	Have      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d bars, have %d", e.Indicator, e.Need, e.Have)
}

// UnknownStrategyError means the strategy id is not registered.
type UnknownStrategyError struct {
	ID string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown strategy %q", e.ID)
}

// UnknownSymbolError means the symbol is blank, malformed or not tracked.
type UnknownSymbolError struct {
	Symbol string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol %q", e.Symbol)
}

// DataFetchError wraps a failure of the price source.
type DataFetchError struct {
	Symbol string
	Err    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *DataFetchError) Unwrap() error { return e.Err }

// MissingPriceError means a holding could not be priced.
type MissingPriceError struct {
	Symbol string
	Err    error
}

func (e *MissingPriceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("missing price for %s", e.Symbol)
	}
	return fmt.Sprintf("missing price for %s: %v", e.Symbol, e.Err)
}

func (e *MissingPriceError) Unwrap() error { return e.Err }
