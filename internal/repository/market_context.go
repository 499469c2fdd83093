package repository

import (
	"context"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	applogger "SignalDesk/pkg/logger"
)

// VIXContextProvider derives market context from the latest VIX close.
// Each outcome, an empty context on failure included, is reused for maxAge.
// While one caller fetches, others get the previous context without waiting.
type VIXContextProvider struct {
	source domrepo.PriceSource
	symbol string
	maxAge time.Duration
	log    *applogger.Logger
	now    func() time.Time

	mu       sync.Mutex
	last     models.MarketContext
	fetched  time.Time
	inflight bool
}

func NewVIXContextProvider(source domrepo.PriceSource, symbol string, maxAge time.Duration, log *applogger.Logger) *VIXContextProvider {
	if symbol == "" {
		symbol = "^VIX"
	}
	return &VIXContextProvider{source: source, symbol: symbol, maxAge: maxAge, log: log, now: time.Now}
}

func (p *VIXContextProvider) Context(ctx context.Context) models.MarketContext {
	p.mu.Lock()
	now := p.now()
	fresh := !p.fetched.IsZero() && now.Sub(p.fetched) < p.maxAge
	if fresh || p.inflight {
		last := p.last
		p.mu.Unlock()
		return last
	}
	p.inflight = true
	p.mu.Unlock()

	mc := p.fetch(ctx)

	p.mu.Lock()
	p.last, p.fetched, p.inflight = mc, now, false
	p.mu.Unlock()
	return mc
}

func (p *VIXContextProvider) fetch(ctx context.Context) models.MarketContext {
	series, err := p.source.FetchSeries(ctx, p.symbol, domrepo.Period1mo)
	if err != nil {
		p.log.Warn("vix fetch failed", applogger.String("symbol", p.symbol), applogger.Error(err))
		return models.MarketContext{}
	}
	vix, ok := series.LastClose()
	if !ok {
		p.log.Warn("vix series empty", applogger.String("symbol", p.symbol))
		return models.MarketContext{}
	}
	return models.NewMarketContext(vix)
}

var _ domrepo.MarketContextProvider = (*VIXContextProvider)(nil)
