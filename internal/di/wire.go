//go:build wireinject
// +build wireinject

package di

import (
	"TradeQuorum/pkg/config"
	"TradeQuorum/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCacheService,

		// Repositories
		ProvideDecisionStore,
		ProvideEventPublisher,
		ProvidePerformanceStore,

		// Market data
		ProvideMarketStream,
		ProvideCandleBook,
		ProvideFeedRunner,

		// Decision services
		ProvideWeightTracker,
		ProvideConsensusEngine,
		ProvideRegimeClassifier,
		ProvideCorrelationAnalyzer,
		ProvideLimitState,
		ProvideKillSwitch,
		ProvideBreakerRegistry,
		ProvideRiskGuard,
		ProvidePortfolioProvider,
		ProvideVoteProviders,

		// Use cases
		ProvideDecisionRecorder,
		ProvideOrchestrator,
		ProvideOutcomeConsumer,

		// HTTP surface and application
		ProvideOpsHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
