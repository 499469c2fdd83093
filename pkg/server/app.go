// Package server owns the process lifecycle: startup hooks, background
// workers, the HTTP server and ordered shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	"SignalDesk/pkg/logger"
)

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

type closer struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	log             *logger.Logger
	server          *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	refresher       *Refresher
	startup         []hook
	closers         []closer
	shutdownTimeout time.Duration
}

type Option func(*App)

// WithConsumer starts c with handlers on Run. A nil consumer is ignored.
func WithConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) Option {
	return func(a *App) {
		if c != nil {
			a.consumer = c
			a.handlers = append(a.handlers, handlers...)
		}
	}
}

func WithRefresher(r *Refresher) Option {
	return func(a *App) { a.refresher = r }
}

// WithStartup runs fn before anything is served. A failing hook aborts Run.
func WithStartup(name string, fn func(ctx context.Context) error) Option {
	return func(a *App) { a.startup = append(a.startup, hook{name: name, fn: fn}) }
}

// WithCloser closes c on shutdown. Closers run in reverse registration order.
func WithCloser(name string, c io.Closer) Option {
	return func(a *App) {
		if c != nil {
			a.closers = append(a.closers, closer{name: name, c: c})
		}
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// New creates a new App instance with all dependencies.
func New(log *logger.Logger, server *xhttp.Server, opts ...Option) *App {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{log: log, server: server, shutdownTimeout: 15 * time.Second}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Run starts every component and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		a.log.Error("startup failed", logger.Error(err))
		return errors.Join(err, a.Shutdown(context.WithoutCancel(ctx)))
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.WithoutCancel(ctx))
}

func (a *App) start(ctx context.Context) error {
	for _, h := range a.startup {
		start := time.Now()
		if err := h.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", h.name, err)
		}
		a.log.Info("startup step done", logger.String("step", h.name), logger.Duration("took", time.Since(start)))
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("kafka consumer started", logger.Strings("topics", topics))
	}

	if a.refresher != nil {
		if err := a.refresher.Start(ctx); err != nil {
			return fmt.Errorf("refresher: %w", err)
		}
	}

	if a.server != nil {
		if err := a.server.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	return nil
}

// Shutdown stops intake first, then background work, then closes clients.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.shutdownTimeout)
	defer cancel()
	a.log.Info("shutting down")

	var errs []error
	if a.server != nil {
		if err := a.server.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.refresher != nil {
		a.refresher.Stop()
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop kafka consumer: %w", err))
		}
	}
	for _, c := range slices.Backward(a.closers) {
		if err := c.c.Close(); err != nil {
			a.log.Warn("close failed", logger.String("component", c.name), logger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}
