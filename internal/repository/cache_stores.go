package repository

import (
	"context"
	"errors"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
)

const (
	holdingsKey  = "portfolio:holdings"
	watchlistKey = "watchlist:monitored"
)

// CacheHoldingStore persists holdings as one JSON document in the cache.
type CacheHoldingStore struct {
	cache cache.Service
}

func NewCacheHoldingStore(c cache.Service) *CacheHoldingStore {
	return &CacheHoldingStore{cache: c}
}

// LoadHoldings reports ok=false when nothing has been saved yet.
func (s *CacheHoldingStore) LoadHoldings(ctx context.Context) ([]models.Holding, bool, error) {
	holdings, err := cache.GetTyped[[]models.Holding](ctx, s.cache, holdingsKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return holdings, true, nil
}

func (s *CacheHoldingStore) SaveHoldings(ctx context.Context, holdings []models.Holding) error {
	if holdings == nil {
		holdings = []models.Holding{}
	}
	return s.cache.Set(ctx, holdingsKey, holdings, 0)
}

// CacheWatchlistStore persists the monitored symbols in the cache.
type CacheWatchlistStore struct {
	cache cache.Service
}

func NewCacheWatchlistStore(c cache.Service) *CacheWatchlistStore {
	return &CacheWatchlistStore{cache: c}
}

func (s *CacheWatchlistStore) LoadWatchlist(ctx context.Context) (models.MonitoredStocks, bool, error) {
	stocks, err := cache.GetTyped[models.MonitoredStocks](ctx, s.cache, watchlistKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return stocks, true, nil
}

func (s *CacheWatchlistStore) SaveWatchlist(ctx context.Context, stocks models.MonitoredStocks) error {
	return s.cache.Set(ctx, watchlistKey, stocks, 0)
}

var (
	_ domrepo.HoldingStore   = (*CacheHoldingStore)(nil)
	_ domrepo.WatchlistStore = (*CacheWatchlistStore)(nil)
)
