package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// PriceStore provides read access to daily price history.
type PriceStore interface {
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error)
	GetLatestNBars(ctx context.Context, symbol string, n int) (models.PriceSeries, error)
}

// PriceWriter stores daily bars (CLI import, backfills).
type PriceWriter interface {
	StoreBars(ctx context.Context, symbol string, bars models.PriceSeries) error
}

// AnalysisStore persists finished analyses.
type AnalysisStore interface {
	Init(ctx context.Context) error
	SaveAnalysis(ctx context.Context, a *models.Analysis) error
	Health(ctx context.Context) error
}

// SignalPublisher announces finished analyses to downstream consumers.
type SignalPublisher interface {
	PublishAnalysis(ctx context.Context, a *models.Analysis) error
	Close() error
}

// AnalysisCache stores analyses by key.
type AnalysisCache interface {
	Get(ctx context.Context, key string) (*models.Analysis, bool)
	Set(ctx context.Context, key string, a *models.Analysis) error
}

// Metrics records forecasting telemetry.
type Metrics interface {
	ObserveForecaster(component string, seconds float64, err error)
	RecordDegradation(component string)
	RecordLatency(op string, seconds float64)
	RecordBacktest(symbol string, r *models.BacktestResult)
	RecordError(kind string)
}
