package server

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"SignalDesk/internal/domain/models"
	"SignalDesk/pkg/cache"
	"SignalDesk/pkg/logger"
)

const refreshLockKey = "lock:signals:refresh"

// Refreshable re-evaluates and publishes the monitored signals.
type Refreshable interface {
	Refresh(ctx context.Context) (*models.SignalBatch, error)
}

// Refresher runs Refresh on a fixed interval. With a shared cache lock only
// one replica refreshes per tick.
type Refresher struct {
	board    Refreshable
	interval time.Duration
	timeout  time.Duration
	lock     cache.Service
	log      *logger.Logger
	cron     *gocron.Scheduler
}

type RefresherOption func(*Refresher)

// WithRefreshLock serialises refreshes across processes sharing c.
func WithRefreshLock(c cache.Service) RefresherOption {
	return func(r *Refresher) { r.lock = c }
}

func WithRefreshTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithRefreshLogger(l *logger.Logger) RefresherOption {
	return func(r *Refresher) { r.log = l }
}

func NewRefresher(board Refreshable, interval time.Duration, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		board:    board,
		interval: interval,
		timeout:  time.Minute,
		log:      logger.Nop(),
		cron:     gocron.NewScheduler(time.UTC),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start schedules the refresh job, running it once right away.
func (r *Refresher) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	_, err := r.cron.Every(r.interval).SingletonMode().Do(func() {
		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("signal refresh failed", logger.Error(err))
		}
	})
	if err != nil {
		return err
	}
	r.cron.StartAsync()
	r.log.Info("signal refresher started", logger.Duration("interval", r.interval))
	return nil
}

// RunOnce refreshes unless another holder owns the lock.
func (r *Refresher) RunOnce(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	if r.lock != nil {
		ok, err := r.lock.TryLock(ctx, refreshLockKey, r.interval)
		if err != nil {
			return err
		}
		if !ok {
			r.log.Debug("signal refresh skipped, lock held elsewhere")
			return nil
		}
		defer func() {
			if err := r.lock.Unlock(context.WithoutCancel(ctx), refreshLockKey); err != nil {
				r.log.Warn("release refresh lock", logger.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	start := time.Now()
	batch, err := r.board.Refresh(ctx)
	if batch != nil {
		r.log.Debug("signal refresh done",
			logger.Int("signals", batch.TotalSignals),
			logger.Duration("took", time.Since(start)),
		)
	}
	return err
}

func (r *Refresher) Stop() {
	r.cron.Stop()
	r.log.Info("signal refresher stopped")
}
