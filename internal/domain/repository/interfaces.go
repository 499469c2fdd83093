package repository

import (
	"context"
	"time"

	"SignalDesk/internal/domain/models"
)

// PriceSource returns daily history for one symbol, oldest bar first.
type PriceSource interface {
	FetchSeries(ctx context.Context, symbol string, period Period) (*models.PriceSeries, error)
}

// MarketContextProvider supplies optional market state such as the VIX level.
// Implementations return a zero MarketContext when the state is unknown.
type MarketContextProvider interface {
	Context(ctx context.Context) models.MarketContext
}

// BarStore persists daily bars.
type BarStore interface {
	Init(ctx context.Context) error // ensure tables
	StoreBars(ctx context.Context, bars []models.Candle) error
	LatestDate(ctx context.Context, symbol string) (time.Time, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalPublisher fans refreshed signals out to downstream consumers.
type SignalPublisher interface {
	PublishSignals(ctx context.Context, signals []models.Signal) error
	Close() error
}

// HoldingStore persists portfolio holdings between restarts.
type HoldingStore interface {
	LoadHoldings(ctx context.Context) ([]models.Holding, bool, error)
	SaveHoldings(ctx context.Context, holdings []models.Holding) error
}

// WatchlistStore persists the monitored symbol lists.
type WatchlistStore interface {
	LoadWatchlist(ctx context.Context) (models.MonitoredStocks, bool, error)
	SaveWatchlist(ctx context.Context, stocks models.MonitoredStocks) error
}

type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
