//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/config"
	"FinCast/pkg/metrics"
	"FinCast/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		wire.Bind(new(domrepo.Metrics), new(*metrics.Recorder)),
		ProvideRunConfig,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideCacheBackend,

		// Repositories
		ProvidePriceStore,
		ProvideAnalysisStore,
		ProvideSignalPublisher,
		ProvideAnalysisCache,

		// Use cases
		ProvideForecastUseCase,
		ProvideAnalysisService,
		ProvideForecastRequestHandler,

		// Transport
		ProvideKafkaConsumer,
		ProvideAPIHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
