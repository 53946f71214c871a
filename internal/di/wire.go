//go:build wireinject
// +build wireinject

package di

import (
	"SignalDesk/pkg/config"
	"SignalDesk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideClock,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideClickHouseClient,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSettingsStore,
		ProvideHistory,
		ProvideTickPublisher,
		ProvideAlertPublisher,

		// Market data
		ProvideHTTPSource,
		ProvideMarketDataSource,
		ProvideRunners,
		ProvideMacroHolder,
		ProvideMacroRefresher,

		// Analysis
		ProvideAnalysisProviders,
		ProvideConsensusEngine,
		ProvideWatchlist,
		ProvideCooldownGate,
		ProvideRiskMonitor,
		ProvidePositionBook,
		ProvideNotifier,

		// Use cases
		ProvideInlineScheduler,
		ProvideScheduler,
		ProvideTickLoop,
		ProvideAnalyzer,
		ProvideJobQueue,
		ProvideTickArchiver,

		// HTTP and lifecycle
		ProvideHTTPHandler,
		ProvideClosers,
		ProvideApp,
	)
	return &server.App{}, nil
}
