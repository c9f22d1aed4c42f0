package service

import (
	"context"

	"FinCast/internal/domain/models"
)

// ForecastParams are the per-run knobs a price forecaster may use.
type ForecastParams struct {
	Horizon int
	Window  int
}

// PricePath is an h-step forecast. Lower/Upper are optional and have the same length as Points.
type PricePath struct {
	Points []float64
	Lower  []float64
	Upper  []float64
}

// HasBand reports whether the path carries a prediction interval.
func (p PricePath) HasBand() bool {
	return len(p.Lower) == len(p.Points) && len(p.Upper) == len(p.Points) && len(p.Points) > 0
}

// PriceForecaster is a leaf of the ensemble. Implementations keep no state between calls.
type PriceForecaster interface {
	Name() string
	MinHistory(p ForecastParams) int
	Forecast(ctx context.Context, history models.FeatureTable, p ForecastParams) (PricePath, error)
}

// VolatilityForecaster forecasts the conditional standard deviation (percent) of daily returns.
type VolatilityForecaster interface {
	Forecast(ctx context.Context, returnsPct []float64, h int) ([]float64, error)
}
