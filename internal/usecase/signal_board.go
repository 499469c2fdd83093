package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/pkg/logger"
)

// DefaultMonitoredStocks is the watchlist used when nothing is configured or saved.
func DefaultMonitoredStocks() models.MonitoredStocks {
	return models.MonitoredStocks{
		models.RegionUS: {"QQQ", "NVDA", "VOO"},
		models.RegionTW: {"0050.TW", "00878.TW"},
	}
}

// RegionOrder is the order regions are listed and evaluated in.
var RegionOrder = []models.Region{models.RegionUS, models.RegionTW}

// SignalBoard evaluates the monitored symbols and pushes refreshed signals
// to the registered publishers.
type SignalBoard struct {
	signals    *SignalService
	registry   *StrategyRegistry
	filter     *SignalFilter
	store      repository.WatchlistStore
	publishers []repository.SignalPublisher
	log        *logger.Logger
	timeout    time.Duration
	workers    int
	now        func() time.Time

	mu     sync.RWMutex
	stocks models.MonitoredStocks
	latest atomic.Pointer[models.SignalBatch]
}

type BoardOption func(*SignalBoard)

func WithSignalFilter(f *SignalFilter) BoardOption {
	return func(b *SignalBoard) { b.filter = f }
}

func WithWatchlistStore(s repository.WatchlistStore) BoardOption {
	return func(b *SignalBoard) { b.store = s }
}

// WithPublishers adds sinks that receive every refreshed batch.
func WithPublishers(p ...repository.SignalPublisher) BoardOption {
	return func(b *SignalBoard) { b.publishers = append(b.publishers, p...) }
}

func WithBoardLogger(l *logger.Logger) BoardOption {
	return func(b *SignalBoard) { b.log = l }
}

func WithBoardWorkers(n int) BoardOption {
	return func(b *SignalBoard) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithBoardTimeout bounds one evaluation of the whole watchlist. Non-positive values keep the default.
func WithBoardTimeout(d time.Duration) BoardOption {
	return func(b *SignalBoard) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func WithBoardClock(now func() time.Time) BoardOption {
	return func(b *SignalBoard) { b.now = now }
}

func NewSignalBoard(signals *SignalService, registry *StrategyRegistry, stocks models.MonitoredStocks, opts ...BoardOption) *SignalBoard {
	if len(stocks) == 0 {
		stocks = DefaultMonitoredStocks()
	}
	b := &SignalBoard{
		signals:  signals,
		registry: registry,
		log:      logger.Nop(),
		timeout:  10 * time.Second,
		workers:  8,
		now:      time.Now,
		stocks:   cloneStocks(stocks),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func cloneStocks(in models.MonitoredStocks) models.MonitoredStocks {
	out := make(models.MonitoredStocks, len(in))
	for r, syms := range in {
		out[r] = append([]string(nil), syms...)
	}
	return out
}

// Restore loads the saved watchlist, or saves the current one if none exists.
func (b *SignalBoard) Restore(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	saved, found, err := b.store.LoadWatchlist(ctx)
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if found {
		b.stocks = saved
		return nil
	}
	return b.store.SaveWatchlist(ctx, b.stocks)
}

// Monitored returns a copy of the watchlist.
func (b *SignalBoard) Monitored() models.MonitoredStocks {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneStocks(b.stocks)
}

// Symbols flattens the watchlist in region order.
func (b *SignalBoard) Symbols() []string {
	stocks := b.Monitored()
	var out []string
	for _, r := range RegionOrder {
		out = append(out, stocks[r]...)
	}
	for r, syms := range stocks {
		if !slices.Contains(RegionOrder, r) {
			out = append(out, syms...)
		}
	}
	return out
}

// AddStock starts monitoring symbol. An empty region is inferred from the
// suffix. added is false when the symbol was already monitored.
func (b *SignalBoard) AddStock(ctx context.Context, symbol string, region models.Region) (models.Region, bool, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return "", false, err
	}
	if region == "" {
		region = models.RegionForSymbol(sym)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if slices.Contains(b.stocks[region], sym) {
		return region, false, nil
	}
	next := cloneStocks(b.stocks)
	next[region] = append(next[region], sym)
	if err := b.save(ctx, next); err != nil {
		return "", false, err
	}
	b.stocks = next
	b.log.Info("stock added", logger.String("symbol", sym), logger.String("region", string(region)))
	return region, true, nil
}

// RemoveStock stops monitoring symbol.
func (b *SignalBoard) RemoveStock(ctx context.Context, symbol string, region models.Region) error {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if region == "" {
		region = models.RegionForSymbol(sym)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	i := slices.Index(b.stocks[region], sym)
	if i < 0 {
		return &models.UnknownSymbolError{Symbol: sym}
	}
	next := cloneStocks(b.stocks)
	next[region] = slices.Delete(next[region], i, i+1)
	if err := b.save(ctx, next); err != nil {
		return err
	}
	b.stocks = next
	b.log.Info("stock removed", logger.String("symbol", sym), logger.String("region", string(region)))
	return nil
}

func (b *SignalBoard) save(ctx context.Context, stocks models.MonitoredStocks) error {
	if b.store == nil {
		return nil
	}
	if err := b.store.SaveWatchlist(ctx, stocks); err != nil {
		return fmt.Errorf("save watchlist: %w", err)
	}
	return nil
}

// SignalsForAll evaluates every monitored symbol with strategyID, or the
// active strategy when empty. The filter is consulted without recording.
func (b *SignalBoard) SignalsForAll(ctx context.Context, strategyID string) (*models.SignalBatch, error) {
	return b.evaluateAll(ctx, strategyID, false)
}

// Refresh evaluates the watchlist with the active strategy, records the
// outcome in the filter history and publishes the batch.
func (b *SignalBoard) Refresh(ctx context.Context) (*models.SignalBatch, error) {
	batch, err := b.evaluateAll(ctx, "", true)
	if err != nil {
		return nil, err
	}
	b.latest.Store(batch)

	var errs []error
	for _, p := range b.publishers {
		if err := p.PublishSignals(ctx, batch.Signals); err != nil {
			b.log.Warn("publish signals", logger.Error(err))
			errs = append(errs, err)
		}
	}
	b.log.Info("signals refreshed",
		logger.String("strategy", batch.StrategyID),
		logger.Int("symbols", batch.TotalSignals),
	)
	return batch, errors.Join(errs...)
}

// Latest returns the batch of the last Refresh, or nil.
func (b *SignalBoard) Latest() *models.SignalBatch {
	return b.latest.Load()
}

func (b *SignalBoard) evaluateAll(ctx context.Context, strategyID string, record bool) (*models.SignalBatch, error) {
	strat, err := b.registry.Resolve(strategyID)
	if err != nil {
		return nil, err
	}
	symbols := b.Symbols()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	out := make([]models.Signal, len(symbols))
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				out[i] = b.evaluateOne(ctx, symbols[i], strat.ID(), record)
			}
		}()
	}
	for i := range symbols {
		idx <- i
	}
	close(idx)
	wg.Wait()

	return &models.SignalBatch{
		StrategyID:   strat.ID(),
		Signals:      out,
		TotalSignals: len(out),
		Timestamp:    b.now(),
	}, nil
}

func (b *SignalBoard) evaluateOne(ctx context.Context, symbol, strategyID string, record bool) models.Signal {
	sig, err := b.signals.SignalFor(ctx, symbol, strategyID)
	if err != nil {
		return models.NewErrorSignal(symbol, strategyID, err.Error(), b.now())
	}
	if b.filter != nil {
		sig = b.filter.Evaluate(ctx, sig, record)
	}
	return sig
}
