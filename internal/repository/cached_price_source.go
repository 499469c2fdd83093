package repository

import (
	"context"
	"errors"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/cache"
	applogger "SignalDesk/pkg/logger"
)

// CachedPriceSource serves series from the cache for ttl before asking next.
// Cache failures fall through to the wrapped source.
type CachedPriceSource struct {
	next  domrepo.PriceSource
	cache cache.Service
	ttl   time.Duration
	log   *applogger.Logger
}

func NewCachedPriceSource(next domrepo.PriceSource, c cache.Service, ttl time.Duration, log *applogger.Logger) *CachedPriceSource {
	return &CachedPriceSource{next: next, cache: c, ttl: ttl, log: log}
}

func (s *CachedPriceSource) FetchSeries(ctx context.Context, symbol string, period domrepo.Period) (*models.PriceSeries, error) {
	key := cache.GenerateKeyWithParams("series", symbol, string(period))

	var cached models.PriceSeries
	err := s.cache.Get(ctx, key, &cached)
	switch {
	case err == nil && cached.Len() > 0:
		return &cached, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		s.log.Warn("series cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	series, err := s.next.FetchSeries(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, series, s.ttl); err != nil {
		s.log.Warn("series cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return series, nil
}

var _ domrepo.PriceSource = (*CachedPriceSource)(nil)
