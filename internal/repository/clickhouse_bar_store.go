package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	domrepo "SignalDesk/internal/domain/repository"
	pkgch "SignalDesk/pkg/clickhouse"
	applogger "SignalDesk/pkg/logger"
)

// CHBarStore keeps daily bars in a ReplacingMergeTree keyed by (symbol, date),
// so re-ingesting a day replaces the previous row.
type CHBarStore struct {
	client   *pkgch.Client
	database string
	table    string
	log      *applogger.Logger
	metrics  domrepo.Metrics
	now      func() time.Time
}

// NewCHBarStore creates a bar store on database.daily_bars.
func NewCHBarStore(client *pkgch.Client, database string, log *applogger.Logger, metrics domrepo.Metrics) *CHBarStore {
	return &CHBarStore{
		client:   client,
		database: database,
		table:    database + ".daily_bars",
		log:      log.With(applogger.String("component", "clickhouse_bars")),
		metrics:  metrics,
		now:      time.Now,
	}
}

// SchemaStatements returns the idempotent DDL for the bar table.
func SchemaStatements(database string) []string {
	return []string{
		"CREATE DATABASE IF NOT EXISTS " + database,
		`CREATE TABLE IF NOT EXISTS ` + database + `.daily_bars (
			symbol LowCardinality(String),
			date Date,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			ingested_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(ingested_at)
		ORDER BY (symbol, date)`,
	}
}

func (s *CHBarStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, SchemaStatements(s.database))
}

// StoreBars inserts bars in one batch.
func (s *CHBarStore) StoreBars(ctx context.Context, bars []models.Candle) error {
	if len(bars) == 0 {
		return nil
	}
	start := time.Now()
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, []any{b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume})
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume)", s.table)
	err := s.client.InsertBatch(ctx, q, rows)
	s.metrics.RecordLatency("ch_insert_bars_seconds", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("ch_insert_bars")
		s.log.Error("clickhouse insert bars failed", applogger.Int("rows", len(rows)), applogger.Error(err))
		return fmt.Errorf("store bars: %w", err)
	}
	return nil
}

// LatestDate returns the most recent stored day for symbol, or the zero time.
func (s *CHBarStore) LatestDate(ctx context.Context, symbol string) (time.Time, error) {
	q := fmt.Sprintf("SELECT max(date) FROM %s WHERE symbol = ?", s.table)
	var d sql.NullTime
	if err := s.client.DB().QueryRowContext(ctx, q, symbol).Scan(&d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("latest date %s: %w", symbol, err)
	}
	if !d.Valid || d.Time.Year() <= 1970 {
		return time.Time{}, nil
	}
	return d.Time.UTC(), nil
}

// FetchSeries reads the period's bars, oldest first.
func (s *CHBarStore) FetchSeries(ctx context.Context, symbol string, period domrepo.Period) (*models.PriceSeries, error) {
	start := time.Now()
	from := s.now().UTC().AddDate(0, 0, -period.Days())
	q := fmt.Sprintf(`
		SELECT date, open, high, low, close, volume
		FROM %s FINAL
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC`, s.table)

	rows, err := s.client.DB().QueryContext(ctx, q, symbol, from)
	if err != nil {
		s.metrics.RecordError("ch_query_bars")
		return nil, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	bars := make([]models.Candle, 0, period.Days())
	for rows.Next() {
		c := models.Candle{Symbol: symbol}
		if err := rows.Scan(&c.Date, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan bar %s: %w", symbol, err)
		}
		c.Date = c.Date.UTC()
		bars = append(bars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", symbol, err)
	}
	s.metrics.RecordLatency("ch_query_bars_seconds", time.Since(start).Seconds())
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars stored for %s", symbol)
	}
	s.log.Debug("clickhouse bars loaded",
		applogger.String("symbol", symbol),
		applogger.String("period", string(period)),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return models.NewPriceSeries(symbol, bars), nil
}

func (s *CHBarStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close is a no-op; the client is owned by the caller.
func (s *CHBarStore) Close() error { return nil }

var (
	_ domrepo.BarStore    = (*CHBarStore)(nil)
	_ domrepo.PriceSource = (*CHBarStore)(nil)
)
