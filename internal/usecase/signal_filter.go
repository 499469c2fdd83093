package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"SignalDesk/internal/domain/models"
	"SignalDesk/pkg/cache"
	"SignalDesk/pkg/logger"
)

// FilterConfig holds the anti-whipsaw thresholds.
type FilterConfig struct {
	MinConfidence      float64       `yaml:"min_confidence"`
	Cooldown           time.Duration `yaml:"cooldown"`
	ConfirmationWindow time.Duration `yaml:"confirmation_window"`
	StrongConfidence   float64       `yaml:"strong_confidence"`
	DuplicateWindow    time.Duration `yaml:"duplicate_window"`
	DuplicateDelta     float64       `yaml:"duplicate_delta"`
	ReversalWindow     time.Duration `yaml:"reversal_window"`
	MaxReversals       int           `yaml:"max_reversals"`
	HoldWindow         time.Duration `yaml:"hold_window"`
	HistorySize        int           `yaml:"history_size"`
	HistoryTTL         time.Duration `yaml:"history_ttl"`
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinConfidence:      0.6,
		Cooldown:           4 * time.Hour,
		ConfirmationWindow: 2 * time.Hour,
		StrongConfidence:   0.8,
		DuplicateWindow:    time.Hour,
		DuplicateDelta:     0.1,
		ReversalWindow:     12 * time.Hour,
		MaxReversals:       3,
		HoldWindow:         24 * time.Hour,
		HistorySize:        100,
		HistoryTTL:         48 * time.Hour,
	}
}

// Filter rule names, also used as metric labels.
const (
	RulePassed        = "passed"
	RuleMinConfidence = "min_confidence"
	RuleHold          = "hold"
	RuleDuplicate     = "duplicate"
	RuleCooldown      = "cooldown"
	RuleConfirmation  = "confirmation"
	RuleReversals     = "reversals"
)

// FilterRecorder counts filter outcomes.
type FilterRecorder interface {
	RecordFilterDecision(rule string)
}

// filterRecord is one observed signal. Emitted is false when the filter suppressed it.
type filterRecord struct {
	Signal     models.SignalType `json:"signal"`
	Confidence float64           `json:"confidence"`
	At         time.Time         `json:"at"`
	Emitted    bool              `json:"emitted"`
}

// SignalFilter suppresses noisy BUY/SELL flips using per-symbol history kept in the cache.
type SignalFilter struct {
	cache   cache.Service
	cfg     FilterConfig
	log     *logger.Logger
	metrics FilterRecorder
	now     func() time.Time
	mu      sync.Mutex
}

type FilterOption func(*SignalFilter)

func WithFilterLogger(l *logger.Logger) FilterOption {
	return func(f *SignalFilter) { f.log = l }
}

func WithFilterMetrics(m FilterRecorder) FilterOption {
	return func(f *SignalFilter) { f.metrics = m }
}

func WithFilterClock(now func() time.Time) FilterOption {
	return func(f *SignalFilter) { f.now = now }
}

func NewSignalFilter(c cache.Service, cfg FilterConfig, opts ...FilterOption) *SignalFilter {
	f := &SignalFilter{cache: c, cfg: cfg, log: logger.Nop(), now: time.Now}
	for _, o := range opts {
		o(f)
	}
	return f
}

func historyKey(symbol string) string {
	return cache.GenerateKey("signal_filter", symbol)
}

// Evaluate returns sig unchanged for ERROR signals, otherwise a copy marked
// passed or suppressed. With record set the observation is appended to the
// symbol's history; without it the history is only read.
func (f *SignalFilter) Evaluate(ctx context.Context, sig models.Signal, record bool) models.Signal {
	if sig.IsError() {
		return sig
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	history := f.load(ctx, sig.Symbol)
	rule, reason := f.check(sig, history, now)
	if f.metrics != nil {
		f.metrics.RecordFilterDecision(rule)
	}

	if record {
		history = append(history, filterRecord{
			Signal:     sig.Signal,
			Confidence: sig.Confidence,
			At:         now,
			Emitted:    rule == RulePassed,
		})
		if n := f.cfg.HistorySize; n > 0 && len(history) > n {
			history = history[len(history)-n:]
		}
		if err := f.cache.Set(ctx, historyKey(sig.Symbol), history, f.cfg.HistoryTTL); err != nil {
			f.log.Warn("save filter history", logger.String("symbol", sig.Symbol), logger.Error(err))
		}
	}

	if rule != RulePassed {
		f.log.Debug("signal filtered",
			logger.String("symbol", sig.Symbol),
			logger.String("signal", string(sig.Signal)),
			logger.String("rule", rule),
		)
		return sig.Suppressed(reason)
	}
	return sig.Passed()
}

// Reset forgets the history of symbol.
func (f *SignalFilter) Reset(ctx context.Context, symbol string) error {
	return f.cache.Delete(ctx, historyKey(symbol))
}

func (f *SignalFilter) load(ctx context.Context, symbol string) []filterRecord {
	var history []filterRecord
	if err := f.cache.Get(ctx, historyKey(symbol), &history); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.log.Warn("load filter history", logger.String("symbol", symbol), logger.Error(err))
		}
		return nil
	}
	return history
}

func (f *SignalFilter) check(sig models.Signal, history []filterRecord, now time.Time) (rule, reason string) {
	cfg := f.cfg
	if sig.Confidence < cfg.MinConfidence {
		return RuleMinConfidence, fmt.Sprintf("confidence %.2f below minimum %.2f", sig.Confidence, cfg.MinConfidence)
	}

	last, hasLast := lastEmitted(history)
	if sig.Signal == models.SignalHold {
		if !hasLast {
			return RuleHold, "HOLD without a prior emitted signal"
		}
		if last.Signal == models.SignalHold && now.Sub(last.At) < cfg.HoldWindow {
			return RuleHold, fmt.Sprintf("HOLD already emitted %s ago", ago(now, last.At))
		}
		return RulePassed, ""
	}

	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		if !r.Emitted || r.Signal != sig.Signal {
			continue
		}
		age := now.Sub(r.At)
		if age < cfg.DuplicateWindow && math.Abs(r.Confidence-sig.Confidence) < cfg.DuplicateDelta {
			return RuleDuplicate, fmt.Sprintf("duplicate of %s emitted %s ago", r.Signal, ago(now, r.At))
		}
		if age < cfg.Cooldown {
			return RuleCooldown, fmt.Sprintf("%s cooldown active, last emitted %s ago", r.Signal, ago(now, r.At))
		}
		break
	}

	if sig.Confidence < cfg.StrongConfidence && !observedWithin(history, sig.Signal, now, cfg.ConfirmationWindow) {
		return RuleConfirmation, fmt.Sprintf("%s awaiting confirmation within %s", sig.Signal, cfg.ConfirmationWindow)
	}

	if n := reversals(history, sig.Signal, now, cfg.ReversalWindow); cfg.MaxReversals > 0 && n >= cfg.MaxReversals {
		return RuleReversals, fmt.Sprintf("%d reversals within %s", n, cfg.ReversalWindow)
	}
	return RulePassed, ""
}

func lastEmitted(history []filterRecord) (filterRecord, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Emitted {
			return history[i], true
		}
	}
	return filterRecord{}, false
}

func observedWithin(history []filterRecord, t models.SignalType, now time.Time, window time.Duration) bool {
	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		if now.Sub(r.At) >= window {
			break
		}
		if r.Signal == t {
			return true
		}
	}
	return false
}

// reversals counts BUY/SELL direction changes among emitted signals inside
// window, including the candidate as the newest entry.
func reversals(history []filterRecord, candidate models.SignalType, now time.Time, window time.Duration) int {
	var seq []models.SignalType
	for _, r := range history {
		if r.Emitted && r.Signal != models.SignalHold && now.Sub(r.At) < window {
			seq = append(seq, r.Signal)
		}
	}
	seq = append(seq, candidate)

	n := 0
	for i := 1; i < len(seq); i++ {
		if seq[i] != seq[i-1] {
			n++
		}
	}
	return n
}

func ago(now, at time.Time) string {
	return now.Sub(at).Round(time.Minute).String()
}
