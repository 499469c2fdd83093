package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/internal/services/portfolio"
	"SignalDesk/pkg/logger"
)

// PortfolioManager owns the holdings and values them against live prices.
// Mutations are visible to the next read as soon as they return.
type PortfolioManager struct {
	signals  *SignalService
	registry *StrategyRegistry
	store    repository.HoldingStore
	log      *logger.Logger
	bands    portfolio.Bands
	now      func() time.Time

	mu       sync.RWMutex
	holdings []models.Holding
	targets  models.TargetWeights
}

type PortfolioOption func(*PortfolioManager)

// WithHoldingStore persists holdings on every mutation.
func WithHoldingStore(s repository.HoldingStore) PortfolioOption {
	return func(p *PortfolioManager) { p.store = s }
}

func WithPortfolioLogger(l *logger.Logger) PortfolioOption {
	return func(p *PortfolioManager) { p.log = l }
}

func WithBands(b portfolio.Bands) PortfolioOption {
	return func(p *PortfolioManager) { p.bands = b }
}

func WithPortfolioClock(now func() time.Time) PortfolioOption {
	return func(p *PortfolioManager) { p.now = now }
}

func NewPortfolioManager(signals *SignalService, registry *StrategyRegistry, initial []models.Holding, targets models.TargetWeights, opts ...PortfolioOption) *PortfolioManager {
	p := &PortfolioManager{
		signals:  signals,
		registry: registry,
		log:      logger.Nop(),
		bands:    portfolio.DefaultBands(),
		now:      time.Now,
		targets:  targets,
	}
	for _, h := range initial {
		p.holdings = portfolio.MergeHolding(p.holdings, h)
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Restore replaces the holdings with the persisted copy, or seeds the store
// with the current holdings when nothing was saved yet.
func (p *PortfolioManager) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	saved, found, err := p.store.LoadHoldings(ctx)
	if err != nil {
		return fmt.Errorf("load holdings: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if found {
		p.holdings = saved
		p.log.Info("holdings restored", logger.Int("count", len(saved)))
		return nil
	}
	return p.persist(ctx, p.holdings)
}

func (p *PortfolioManager) persist(ctx context.Context, holdings []models.Holding) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.SaveHoldings(ctx, holdings); err != nil {
		return fmt.Errorf("save holdings: %w", err)
	}
	return nil
}

// Holdings returns a copy of the current holdings.
func (p *PortfolioManager) Holdings() []models.Holding {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]models.Holding(nil), p.holdings...)
}

// Targets returns the configured target weights.
func (p *PortfolioManager) Targets() models.TargetWeights {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.targets
}

// Add creates a holding or merges it into the existing one at weighted-average cost.
func (p *PortfolioManager) Add(ctx context.Context, h models.Holding) (models.Holding, error) {
	sym, err := NormalizeSymbol(h.Symbol)
	if err != nil {
		return models.Holding{}, err
	}
	if !(h.Quantity > 0) || math.IsInf(h.Quantity, 0) {
		return models.Holding{}, fmt.Errorf("quantity must be positive, got %v", h.Quantity)
	}
	if !(h.CostBasis > 0) || math.IsInf(h.CostBasis, 0) {
		return models.Holding{}, fmt.Errorf("cost basis must be positive, got %v", h.CostBasis)
	}
	h.Symbol = sym

	p.mu.Lock()
	defer p.mu.Unlock()

	next := portfolio.MergeHolding(p.holdings, h)
	if err := p.persist(ctx, next); err != nil {
		return models.Holding{}, err
	}
	p.holdings = next
	for _, cur := range next {
		if cur.Symbol == sym {
			h = cur
		}
	}
	p.log.Info("holding added", logger.String("symbol", sym), logger.Float("quantity", h.Quantity))
	return h, nil
}

// Remove drops symbol from the holdings.
func (p *PortfolioManager) Remove(ctx context.Context, symbol string) error {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next, found := portfolio.RemoveHolding(p.holdings, sym)
	if !found {
		return &models.UnknownSymbolError{Symbol: sym}
	}
	if err := p.persist(ctx, next); err != nil {
		return err
	}
	p.holdings = next
	p.log.Info("holding removed", logger.String("symbol", sym))
	return nil
}

// Analyze values the current holdings at the latest close of each symbol.
func (p *PortfolioManager) Analyze(ctx context.Context) models.PortfolioAnalysis {
	holdings := p.Holdings()
	return portfolio.Analyze(holdings, p.quotes(ctx, holdings), p.now())
}

// quotes loads the latest close of every held symbol concurrently.
func (p *PortfolioManager) quotes(ctx context.Context, holdings []models.Holding) map[string]portfolio.Quote {
	type item struct {
		symbol string
		quote  portfolio.Quote
	}
	ch := make(chan item, len(holdings))
	var wg sync.WaitGroup
	seen := map[string]bool{}

	for _, h := range holdings {
		if seen[h.Symbol] {
			continue
		}
		seen[h.Symbol] = true
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			series, err := p.signals.fetch(ctx, symbol, repository.Period1mo)
			if err != nil {
				ch <- item{symbol, portfolio.Quote{Err: err}}
				return
			}
			price, _ := series.LastClose()
			ch <- item{symbol, portfolio.Quote{Price: price}}
		}(h.Symbol)
	}
	go func() { wg.Wait(); close(ch) }()

	out := make(map[string]portfolio.Quote, len(seen))
	for it := range ch {
		out[it.symbol] = it.quote
	}
	return out
}

// ExpectedReturns projects the current portfolio value under a strategy.
// An empty strategyID uses the active strategy.
func (p *PortfolioManager) ExpectedReturns(ctx context.Context, strategyID string) (*models.ExpectedReturns, error) {
	strat, err := p.registry.Resolve(strategyID)
	if err != nil {
		return nil, err
	}
	er := portfolio.ExpectedReturns(p.Analyze(ctx), strat)
	return &er, nil
}

// Overview values the holdings once and projects them under strategyID.
func (p *PortfolioManager) Overview(ctx context.Context, strategyID string) (models.PortfolioAnalysis, *models.ExpectedReturns, error) {
	strat, err := p.registry.Resolve(strategyID)
	if err != nil {
		return models.PortfolioAnalysis{}, nil, err
	}
	a := p.Analyze(ctx)
	er := portfolio.ExpectedReturns(a, strat)
	return a, &er, nil
}

// RebalanceSuggestions compares current weights with the targets.
func (p *PortfolioManager) RebalanceSuggestions(ctx context.Context) ([]models.RebalanceSuggestion, models.PortfolioAnalysis) {
	a := p.Analyze(ctx)
	return portfolio.Rebalance(a, p.Targets(), p.bands), a
}

// Compare ranks every registered strategy over horizonYears.
func (p *PortfolioManager) Compare(ctx context.Context, horizonYears int) (models.StrategyComparison, error) {
	if horizonYears < 1 {
		return models.StrategyComparison{}, fmt.Errorf("time horizon must be at least 1 year, got %d", horizonYears)
	}
	strats := p.registry.All()
	if len(strats) == 0 {
		return models.StrategyComparison{}, models.ErrNoActiveStrategy
	}
	return portfolio.Compare(p.Analyze(ctx), strats, horizonYears), nil
}
