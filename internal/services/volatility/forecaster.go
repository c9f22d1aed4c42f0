package volatility

import (
	"context"
	"errors"
	"fmt"

	domsvc "FinCast/internal/domain/service"
	applogger "FinCast/pkg/logger"
)

// Option configures Forecaster.
type Option func(*Forecaster)

// WithModels replaces the default GARCH and EGARCH pair.
func WithModels(models ...Model) Option {
	return func(f *Forecaster) { f.models = models }
}

// WithLogger sets the logger used for per-model failures.
func WithLogger(l *applogger.Logger) Option {
	return func(f *Forecaster) { f.l = l }
}

// Forecaster averages the paths of every model that fits. When none does the
// path is unavailable and the error wraps ErrVolatilityUnavailable.
type Forecaster struct {
	models []Model
	l      *applogger.Logger
}

func NewForecaster(opts ...Option) *Forecaster {
	f := &Forecaster{models: []Model{NewGARCH(), NewEGARCH()}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Forecaster) Forecast(ctx context.Context, returnsPct []float64, h int) ([]float64, error) {
	if h < 1 {
		return nil, &domsvc.ConfigError{Field: "n_future", Reason: "must be >= 1"}
	}
	var (
		sum  []float64
		used int
		errs []error
	)
	for _, m := range f.models {
		path, err := m.Forecast(ctx, returnsPct, h)
		if err != nil {
			f.l.Warn("volatility model failed", applogger.String("model", m.Name()), applogger.Error(err))
			errs = append(errs, err)
			continue
		}
		if sum == nil {
			sum = make([]float64, h)
		}
		for i, v := range path {
			sum[i] += v
		}
		used++
	}
	if used == 0 {
		return nil, fmt.Errorf("%w: %w", domsvc.ErrVolatilityUnavailable, errors.Join(errs...))
	}
	for i := range sum {
		sum[i] /= float64(used)
	}
	return sum, nil
}

var _ domsvc.VolatilityForecaster = (*Forecaster)(nil)
