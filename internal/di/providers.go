package di

import (
	"context"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/handler/api"
	internalrepo "FinCast/internal/repository"
	icache "FinCast/internal/service/cache"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/usecase"
	pkgcache "FinCast/pkg/cache"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "fincast"), applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New(nil)
}

// ProvideRunConfig converts the forecast section into the base run config.
func ProvideRunConfig(cfg *config.Config) (models.RunConfig, error) {
	return cfg.Forecast.RunConfig()
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvidePriceStore reads daily bars from ClickHouse.
func ProvidePriceStore(ch *pkgch.Client, l *applogger.Logger) domrepo.PriceStore {
	return internalrepo.NewCHPriceStore(ch, l)
}

// ProvideAnalysisStore persists analyses to ClickHouse.
func ProvideAnalysisStore(ch *pkgch.Client, l *applogger.Logger) domrepo.AnalysisStore {
	return internalrepo.NewCHForecastStore(ch, l)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
// With log collection on, aggregated error logs are published through it.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Log.Collect {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.CollectInterval,
			CountThreshold: 100,
			Topic:          cfg.Log.CollectTopic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideSignalPublisher publishes finished analyses, or returns nil without a producer.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) domrepo.SignalPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.SignalsTopic, l)
}

// ProvideRedisCache connects to Redis, or returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, 0, 0),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheBackend layers an in-memory cache over Redis when available.
func ProvideCacheBackend(rc *pkgcache.RedisCache, cfg *config.Config) *pkgcache.LayeredCache {
	var l2 pkgcache.Service
	if rc != nil {
		l2 = rc
	}
	return pkgcache.NewLayeredCache(l2, pkgcache.WithLayeredMemory(cfg.Forecast.CacheSize, cfg.Forecast.CacheTTL))
}

// ProvideAnalysisCache stores analyses in the cache backend.
func ProvideAnalysisCache(backend *pkgcache.LayeredCache, cfg *config.Config, l *applogger.Logger) domrepo.AnalysisCache {
	return icache.NewAnalysisCache(backend, cfg.Forecast.CacheTTL, l)
}

// ProvideForecastUseCase builds the ensemble with every forecaster.
func ProvideForecastUseCase(l *applogger.Logger, m domrepo.Metrics) *usecase.ForecastUseCase {
	return usecase.NewForecastUseCase(
		usecase.WithCombinerLogger(l),
		usecase.WithCombinerMetrics(m),
	)
}

// ProvideAnalysisService wires the pipeline around the ensemble.
func ProvideAnalysisService(
	prices domrepo.PriceStore,
	forecaster *usecase.ForecastUseCase,
	store domrepo.AnalysisStore,
	publisher domrepo.SignalPublisher,
	cache domrepo.AnalysisCache,
	cfg *config.Config,
	l *applogger.Logger,
	m domrepo.Metrics,
) *usecase.AnalysisService {
	opts := []usecase.AnalysisOption{
		usecase.WithAnalysisStore(store),
		usecase.WithAnalysisCache(cache),
		usecase.WithDefaultLookback(cfg.Forecast.Lookback),
		usecase.WithAnalysisLogger(l),
		usecase.WithAnalysisMetrics(m),
	}
	if publisher != nil {
		opts = append(opts, usecase.WithSignalPublisher(publisher))
	}
	return usecase.NewAnalysisService(prices, forecaster, opts...)
}

// ProvideKafkaConsumer creates the forecast job consumer, or nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
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
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.LoggingHook{L: l, Describe: usecase.JobLogFields}))
	return consumer, nil
}

// ProvideForecastRequestHandler turns forecast jobs into analyses, throttled per symbol.
func ProvideForecastRequestHandler(
	cfg *config.Config,
	svc *usecase.AnalysisService,
	base models.RunConfig,
	l *applogger.Logger,
	m domrepo.Metrics,
) *usecase.ForecastRequestHandler {
	limiter := ratelimit.New(cfg.Kafka.Consumer.JobsPerSecond, 1)
	return usecase.NewForecastRequestHandler(cfg.Kafka.RequestTopic, svc, base, limiter, l, m)
}

// ProvideAPIHandler exposes the analysis service over HTTP with dependency health checks.
func ProvideAPIHandler(
	cfg *config.Config,
	svc *usecase.AnalysisService,
	base models.RunConfig,
	ch *pkgch.Client,
	rc *pkgcache.RedisCache,
	l *applogger.Logger,
) *api.ForecastHandler {
	opts := []api.HandlerOption{
		api.WithRequestTimeout(cfg.Server.WriteTimeout),
		api.WithHealthCheck("clickhouse", ch.Health),
	}
	if rc != nil {
		opts = append(opts, api.WithHealthCheck("redis", rc.Ping))
	}
	return api.NewForecastHandler(l, svc, base, opts...)
}

// ProvideHTTPServer creates the echo server with per-IP rate limiting.
func ProvideHTTPServer(cfg *config.Config, h *api.ForecastHandler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithRateLimiter(ratelimit.New(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)),
		xhttp.WithServerLogger(l),
	)
}

// ProvideApp creates the application. The signal publisher owns the producer
// and closes it.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	requests *usecase.ForecastRequestHandler,
	ch *pkgch.Client,
	backend *pkgcache.LayeredCache,
	publisher domrepo.SignalPublisher,
) *server.App {
	var app *server.App
	if consumer != nil {
		app = server.New(cfg, l, httpServer, consumer, requests)
	} else {
		app = server.New(cfg, l, httpServer, nil)
	}

	app.OnShutdown("clickhouse", ch.Close)
	app.OnShutdown("cache", backend.Close)
	if publisher != nil {
		app.OnShutdown("signal publisher", publisher.Close)
	}
	return app
}
