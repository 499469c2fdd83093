package di

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"SignalDesk/internal/domain/models"
	"SignalDesk/internal/domain/repository"
	"SignalDesk/internal/domain/service"
	"SignalDesk/internal/handler/api"
	"SignalDesk/internal/handler/ws"
	internalrepo "SignalDesk/internal/repository"
	smetrics "SignalDesk/internal/service/metrics"
	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/services/portfolio"
	"SignalDesk/internal/services/risk"
	"SignalDesk/internal/services/strategies"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/cache"
	pkgch "SignalDesk/pkg/clickhouse"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	pkgkafka "SignalDesk/pkg/kafka"
	"SignalDesk/pkg/logger"
	"SignalDesk/pkg/metrics"
	"SignalDesk/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

func ProvideEvaluationMetrics() *smetrics.Evaluations {
	return smetrics.NewEvaluations()
}

// ProvideCache builds the memory, redis or layered cache.
func ProvideCache(cfg *config.Config, log *logger.Logger) (cache.Service, error) {
	if cfg.Cache.Type == "memory" {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize)), nil
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.PoolSize/2, 30*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	log.Info("redis connected", logger.String("host", cfg.Redis.Host), logger.Int("port", cfg.Redis.Port))
	if cfg.Cache.Type == "redis" {
		return rc, nil
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MaxSize),
		cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	), nil
}

// ProvideClickHouseClient connects to ClickHouse, or returns nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideBarStore wraps the ClickHouse client. Nil without a client.
func ProvideBarStore(client *pkgch.Client, cfg *config.Config, log *logger.Logger, m repository.Metrics) *internalrepo.CHBarStore {
	if client == nil {
		return nil
	}
	return internalrepo.NewCHBarStore(client, cfg.ClickHouse.Database, log, m)
}

// ProvidePriceSource picks the chart API or ClickHouse and fronts it with the cache.
func ProvidePriceSource(cfg *config.Config, log *logger.Logger, m repository.Metrics, store *internalrepo.CHBarStore, c cache.Service) (repository.PriceSource, error) {
	var src repository.PriceSource
	switch cfg.PriceSource.Type {
	case "clickhouse":
		if store == nil {
			return nil, fmt.Errorf("price_source clickhouse requires clickhouse.enabled")
		}
		src = store
	default:
		client := xhttp.NewClient(
			xhttp.WithTimeout(cfg.PriceSource.Timeout),
			xhttp.WithHeader("User-Agent", cfg.PriceSource.UserAgent),
		)
		src = internalrepo.NewChartPriceSource(client, cfg.PriceSource.BaseURL, log, m,
			internalrepo.WithChartRate(cfg.PriceSource.RatePerSecond, cfg.PriceSource.Burst),
		)
	}
	if cfg.PriceSource.CacheTTL <= 0 {
		return src, nil
	}
	return internalrepo.NewCachedPriceSource(src, c, cfg.PriceSource.CacheTTL, log), nil
}

func ProvideMarketContext(cfg *config.Config, src repository.PriceSource, log *logger.Logger) repository.MarketContextProvider {
	return internalrepo.NewVIXContextProvider(src, cfg.PriceSource.VIXSymbol, cfg.PriceSource.CacheTTL, log)
}

// ProvideStrategies builds the built-in strategies from engine settings.
func ProvideStrategies(cfg *config.Config) []service.Strategy {
	p := strategies.DefaultParams()
	p.Oversold = cfg.Engine.Oversold
	p.Overbought = cfg.Engine.Overbought
	p.ExtremeOversold = cfg.Engine.ExtremeOversold
	p.ExtremeOverbought = cfg.Engine.ExtremeOverbought
	if cfg.Engine.MomentumLookback > 0 {
		p.MomentumLookback = cfg.Engine.MomentumLookback
	}
	if cfg.Engine.SupportWindow > 0 {
		p.SupportWindow = cfg.Engine.SupportWindow
	}
	return strategies.Defaults(p)
}

// ProvideRegistry registers the strategies and activates the configured default.
func ProvideRegistry(cfg *config.Config, strats []service.Strategy) (*usecase.StrategyRegistry, error) {
	reg, err := usecase.NewStrategyRegistry(strats...)
	if err != nil {
		return nil, err
	}
	if cfg.Engine.DefaultStrategy != "" {
		if _, err := reg.Switch(cfg.Engine.DefaultStrategy); err != nil {
			return nil, fmt.Errorf("engine.default_strategy: %w", err)
		}
	}
	return reg, nil
}

func ProvideSignalService(cfg *config.Config, src repository.PriceSource, reg *usecase.StrategyRegistry, market repository.MarketContextProvider, log *logger.Logger, em *smetrics.Evaluations) *usecase.SignalService {
	return usecase.NewSignalService(src, reg,
		usecase.WithMarketContext(market),
		usecase.WithPeriod(repository.NormalizePeriod(cfg.Engine.Period)),
		usecase.WithLogger(log),
		usecase.WithEvalMetrics(em),
	)
}

// ProvideSignalFilter returns nil when the filter is disabled.
func ProvideSignalFilter(cfg *config.Config, c cache.Service, log *logger.Logger, em *smetrics.Evaluations) *usecase.SignalFilter {
	if !cfg.Filter.Enabled {
		return nil
	}
	f := cfg.Filter
	return usecase.NewSignalFilter(c, usecase.FilterConfig{
		MinConfidence:      f.MinConfidence,
		Cooldown:           f.Cooldown,
		ConfirmationWindow: f.ConfirmationWindow,
		StrongConfidence:   f.StrongConfidence,
		DuplicateWindow:    f.DuplicateWindow,
		DuplicateDelta:     f.DuplicateDelta,
		ReversalWindow:     f.ReversalWindow,
		MaxReversals:       f.MaxReversals,
		HoldWindow:         f.HoldWindow,
		HistorySize:        f.HistorySize,
		HistoryTTL:         f.HistoryTTL,
	}, usecase.WithFilterLogger(log), usecase.WithFilterMetrics(em))
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideSignalHub(log *logger.Logger) *ws.SignalHub {
	return ws.NewSignalHub(log)
}

// ProvidePublishers lists the sinks of refreshed signals.
func ProvidePublishers(cfg *config.Config, producer *pkgkafka.Producer, hub *ws.SignalHub) []repository.SignalPublisher {
	pubs := []repository.SignalPublisher{hub}
	if producer != nil {
		pubs = append(pubs, internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic))
	}
	return pubs
}

func ProvideSignalBoard(cfg *config.Config, signals *usecase.SignalService, reg *usecase.StrategyRegistry, filter *usecase.SignalFilter, c cache.Service, pubs []repository.SignalPublisher, log *logger.Logger) *usecase.SignalBoard {
	opts := []usecase.BoardOption{
		usecase.WithWatchlistStore(internalrepo.NewCacheWatchlistStore(c)),
		usecase.WithPublishers(pubs...),
		usecase.WithBoardLogger(log),
		usecase.WithBoardWorkers(cfg.Engine.Workers),
		usecase.WithBoardTimeout(cfg.Engine.BatchTimeout),
	}
	if filter != nil {
		opts = append(opts, usecase.WithSignalFilter(filter))
	}
	stocks := models.MonitoredStocks{
		models.RegionUS: cfg.Monitored.US,
		models.RegionTW: cfg.Monitored.TW,
	}
	return usecase.NewSignalBoard(signals, reg, stocks, opts...)
}

// ProvidePortfolioManager seeds holdings and targets from config.
func ProvidePortfolioManager(cfg *config.Config, signals *usecase.SignalService, reg *usecase.StrategyRegistry, c cache.Service, log *logger.Logger) *usecase.PortfolioManager {
	holdings := make([]models.Holding, 0, len(cfg.Portfolio.Holdings))
	for _, h := range cfg.Portfolio.Holdings {
		holdings = append(holdings, models.Holding{
			Symbol:    h.Symbol,
			Quantity:  h.Quantity,
			CostBasis: h.CostBasis,
			Region:    models.Region(h.Region),
		})
	}
	targets := models.TargetWeights{}
	for region, weights := range cfg.Portfolio.Targets {
		targets[models.Region(region)] = weights
	}
	bands := portfolio.DefaultBands()
	if r := cfg.Engine.Rebalance; r.Tolerance > 0 {
		bands = portfolio.Bands{Tolerance: r.Tolerance, Action: r.Action, MinAmount: r.MinAmount}
	}
	return usecase.NewPortfolioManager(signals, reg, holdings, targets,
		usecase.WithHoldingStore(internalrepo.NewCacheHoldingStore(c)),
		usecase.WithPortfolioLogger(log),
		usecase.WithBands(bands),
	)
}

func ProvideRiskService(cfg *config.Config, signals *usecase.SignalService, reg *usecase.StrategyRegistry, log *logger.Logger) *usecase.RiskService {
	return usecase.NewRiskService(signals, reg, risk.NewManager(),
		usecase.WithRiskLogger(log),
		usecase.WithBatchTimeout(cfg.Engine.BatchTimeout),
		usecase.WithBatchWorkers(cfg.Engine.Workers),
	)
}

// ProvideRateLimiter limits the expensive fan-out endpoints per client.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.Server.RateLimit.PerSecond <= 0 {
		return nil
	}
	return ratelimit.New(cfg.Server.RateLimit.PerSecond, cfg.Server.RateLimit.Burst)
}

// ProvideHandlers collects every route group, the websocket hub included.
func ProvideHandlers(
	log *logger.Logger,
	reg *usecase.StrategyRegistry,
	signals *usecase.SignalService,
	board *usecase.SignalBoard,
	pm *usecase.PortfolioManager,
	rs *usecase.RiskService,
	limiter *ratelimit.Limiter,
	hub *ws.SignalHub,
	c cache.Service,
	store *internalrepo.CHBarStore,
) []xhttp.Handler {
	checks := map[string]api.HealthCheck{
		"cache": func(ctx context.Context) error {
			_, err := c.Exists(ctx, "healthz")
			return err
		},
	}
	if store != nil {
		checks["clickhouse"] = store.Health
	}
	return []xhttp.Handler{
		api.NewStrategyHandler(log, reg, pm, limiter),
		api.NewSignalHandler(log, signals, board, limiter),
		api.NewPortfolioHandler(log, pm),
		api.NewStockHandler(log, board),
		api.NewRiskHandler(log, rs, board, limiter),
		api.NewHealthHandler(log, checks),
		hub,
	}
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, handlers []xhttp.Handler) *xhttp.Server {
	return xhttp.NewServer(log, handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path),
	)
}

// ProvideKafkaConsumer creates the bar consumer. It needs both Kafka and ClickHouse.
func ProvideKafkaConsumer(cfg *config.Config, store *internalrepo.CHBarStore, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || store == nil || cfg.Kafka.BarsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, km kafka.Message, err error) {
			log.Warn("bar message rejected",
				logger.String("topic", topic),
				logger.Int64("offset", km.Offset),
				logger.String("key", string(km.Key)),
				logger.Error(err),
			)
		},
	})
	return consumer, nil
}

func ProvideBarIngestHandler(cfg *config.Config, store *internalrepo.CHBarStore, m repository.Metrics) *usecase.BarIngestHandler {
	if store == nil {
		return nil
	}
	return usecase.NewBarIngestHandler(cfg.Kafka.BarsTopic, store, m)
}

func ProvideRefresher(cfg *config.Config, board *usecase.SignalBoard, c cache.Service, log *logger.Logger) *server.Refresher {
	if cfg.Engine.RefreshInterval <= 0 {
		return nil
	}
	return server.NewRefresher(board, cfg.Engine.RefreshInterval,
		server.WithRefreshLock(c),
		server.WithRefreshTimeout(cfg.Engine.BatchTimeout*3),
		server.WithRefreshLogger(log),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	srv *xhttp.Server,
	c cache.Service,
	chClient *pkgch.Client,
	store *internalrepo.CHBarStore,
	board *usecase.SignalBoard,
	pm *usecase.PortfolioManager,
	producer *pkgkafka.Producer,
	hub *ws.SignalHub,
	consumer *pkgkafka.Consumer,
	bars *usecase.BarIngestHandler,
	refresher *server.Refresher,
) *server.App {
	opts := []server.Option{
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithCloser("cache", c),
	}
	if chClient != nil {
		opts = append(opts,
			server.WithStartup("clickhouse schema", store.Init),
			server.WithCloser("clickhouse", chClient),
		)
	}
	opts = append(opts,
		server.WithStartup("restore watchlist", board.Restore),
		server.WithStartup("restore holdings", pm.Restore),
	)
	if producer != nil {
		opts = append(opts, server.WithCloser("kafka producer", producer))
	}
	opts = append(opts, server.WithCloser("signal hub", hub))
	if consumer != nil && bars != nil {
		opts = append(opts, server.WithConsumer(consumer, bars))
	}
	if refresher != nil {
		opts = append(opts, server.WithRefresher(refresher))
	}
	return server.New(log, srv, opts...)
}
