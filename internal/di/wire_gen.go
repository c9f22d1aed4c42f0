//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"FinCast/pkg/config"
	"FinCast/pkg/server"
)

// Injectors from wire.go:

// InitializeApp wires up all dependencies and returns the application.
// Provider order mirrors the set in wire.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	runConfig, err := ProvideRunConfig(cfg)
	if err != nil {
		return nil, err
	}
	client, err := ProvideClickHouseClient(cfg)
	if err != nil {
		return nil, err
	}
	priceStore := ProvidePriceStore(client, logger)
	recorder := ProvideMetrics()
	forecastUseCase := ProvideForecastUseCase(logger, recorder)
	analysisStore := ProvideAnalysisStore(client, logger)
	producer, err := ProvideKafkaProducer(cfg, logger)
	if err != nil {
		return nil, err
	}
	signalPublisher := ProvideSignalPublisher(producer, cfg, logger)
	redisCache, err := ProvideRedisCache(cfg)
	if err != nil {
		return nil, err
	}
	layeredCache := ProvideCacheBackend(redisCache, cfg)
	analysisCache := ProvideAnalysisCache(layeredCache, cfg, logger)
	analysisService := ProvideAnalysisService(priceStore, forecastUseCase, analysisStore, signalPublisher, analysisCache, cfg, logger, recorder)
	forecastHandler := ProvideAPIHandler(cfg, analysisService, runConfig, client, redisCache, logger)
	httpServer := ProvideHTTPServer(cfg, forecastHandler, logger)
	consumer, err := ProvideKafkaConsumer(cfg, logger)
	if err != nil {
		return nil, err
	}
	forecastRequestHandler := ProvideForecastRequestHandler(cfg, analysisService, runConfig, logger, recorder)
	app := ProvideApp(cfg, logger, httpServer, consumer, forecastRequestHandler, client, layeredCache, signalPublisher)
	return app, nil
}
