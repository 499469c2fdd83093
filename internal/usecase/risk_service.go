package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/services/risk"
	"SignalDesk/pkg/logger"
)

// RiskService prices risk plans for one symbol or a whole watchlist.
type RiskService struct {
	signals  *SignalService
	registry *StrategyRegistry
	manager  *risk.Manager
	log      *logger.Logger
	timeout  time.Duration
	workers  int
}

type RiskOption func(*RiskService)

func WithRiskLogger(l *logger.Logger) RiskOption {
	return func(r *RiskService) { r.log = l }
}

// WithBatchTimeout bounds a whole PlansForAll call. Non-positive values keep the default.
func WithBatchTimeout(d time.Duration) RiskOption {
	return func(r *RiskService) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBatchWorkers caps concurrent symbol loads in a batch.
func WithBatchWorkers(n int) RiskOption {
	return func(r *RiskService) {
		if n > 0 {
			r.workers = n
		}
	}
}

func NewRiskService(signals *SignalService, registry *StrategyRegistry, manager *risk.Manager, opts ...RiskOption) *RiskService {
	r := &RiskService{
		signals:  signals,
		registry: registry,
		manager:  manager,
		log:      logger.Nop(),
		timeout:  10 * time.Second,
		workers:  8,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// resolveLevel uses level when set, otherwise the risk level of the chosen strategy.
func (r *RiskService) resolveLevel(level models.RiskLevel, strategyID string) (models.RiskLevel, string, error) {
	strat, err := r.registry.Resolve(strategyID)
	if level == "" {
		if err != nil {
			return "", "", err
		}
		return strat.RiskLevel(), strat.ID(), nil
	}
	if !level.Valid() {
		return "", "", fmt.Errorf("invalid risk level %q", level)
	}
	if err != nil {
		if strategyID != "" {
			return "", "", err
		}
		return level, "", nil
	}
	return level, strat.ID(), nil
}

// PlansFor loads symbol and builds its risk plans.
func (r *RiskService) PlansFor(ctx context.Context, symbol string, level models.RiskLevel, strategyID string) (*models.RiskAssessment, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	lvl, sid, err := r.resolveLevel(level, strategyID)
	if err != nil {
		return nil, err
	}
	return r.plans(ctx, sym, lvl, sid)
}

func (r *RiskService) plans(ctx context.Context, symbol string, level models.RiskLevel, strategyID string) (*models.RiskAssessment, error) {
	in, err := r.signals.Load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	price, _ := in.Series.LastClose()
	out, err := r.manager.PlansFor(symbol, price, in.Series, in.Indicators, level)
	if err != nil {
		return nil, fmt.Errorf("plans for %s: %w", symbol, err)
	}
	out.StrategyID = strategyID
	return out, nil
}

// PlansForAll builds plans for every symbol. A failing symbol is reported in
// its own slot and never aborts the batch.
func (r *RiskService) PlansForAll(ctx context.Context, stocks models.MonitoredStocks, level models.RiskLevel, strategyID string) (models.RiskBatch, error) {
	lvl, sid, err := r.resolveLevel(level, strategyID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type item struct {
		region models.Region
		symbol string
		res    models.RiskResult
	}

	out := models.RiskBatch{}
	jobs := make(chan item)
	results := make(chan item)
	var wg sync.WaitGroup

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range jobs {
				it.res = r.planResult(ctx, it.symbol, lvl, sid)
				results <- it
			}
		}()
	}

	go func() {
		defer close(jobs)
		for region, symbols := range stocks {
			for _, s := range symbols {
				jobs <- item{region: region, symbol: s}
			}
		}
	}()
	go func() { wg.Wait(); close(results) }()

	for it := range results {
		if out[it.region] == nil {
			out[it.region] = map[string]models.RiskResult{}
		}
		out[it.region][it.symbol] = it.res
	}
	return out, nil
}

func (r *RiskService) planResult(ctx context.Context, symbol string, level models.RiskLevel, strategyID string) (res models.RiskResult) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("risk plan panicked", logger.String("symbol", symbol), logger.Any("panic", p))
			res = models.RiskResult{Error: fmt.Sprintf("internal error: %v", p)}
		}
	}()

	sym, err := NormalizeSymbol(symbol)
	if err == nil {
		var a *models.RiskAssessment
		if a, err = r.plans(ctx, sym, level, strategyID); err == nil {
			return models.RiskResult{Success: true, Data: a}
		}
	}
	r.log.Warn("risk plan failed", logger.String("symbol", symbol), logger.Error(err))
	return models.RiskResult{Error: err.Error()}
}
