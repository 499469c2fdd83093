//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"SignalDesk/pkg/config"
	"SignalDesk/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideEvaluationMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideBarStore,
		ProvidePriceSource,
		ProvideMarketContext,
		ProvidePublishers,

		// Strategies and use cases
		ProvideStrategies,
		ProvideRegistry,
		ProvideSignalService,
		ProvideSignalFilter,
		ProvideSignalBoard,
		ProvidePortfolioManager,
		ProvideRiskService,
		ProvideBarIngestHandler,

		// Delivery
		ProvideSignalHub,
		ProvideRateLimiter,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideRefresher,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
