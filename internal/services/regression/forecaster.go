package regression

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	applogger "FinCast/pkg/logger"
)

// Regressor trains a Predictor on windowed closes.
type Regressor interface {
	Name() string
	Fit(ctx context.Context, X [][]float64, y []float64) (Predictor, error)
}

// WindowForecaster turns a Regressor into a price forecaster: it builds the
// window dataset from the closes, fits, then predicts recursively.
type WindowForecaster struct {
	model Regressor
	l     *applogger.Logger
}

func NewWindowForecaster(model Regressor, l *applogger.Logger) *WindowForecaster {
	return &WindowForecaster{model: model, l: l}
}

func (f *WindowForecaster) Name() string { return f.model.Name() }

func (f *WindowForecaster) MinHistory(p domsvc.ForecastParams) int {
	return p.Window + MinTrainingExamples
}

func (f *WindowForecaster) Forecast(ctx context.Context, history models.FeatureTable, p domsvc.ForecastParams) (domsvc.PricePath, error) {
	if err := ctx.Err(); err != nil {
		return domsvc.PricePath{}, fmt.Errorf("%s: %w", f.Name(), err)
	}
	closes := history.Closes()
	X, y, err := BuildWindows(closes, p.Window)
	if err != nil {
		return domsvc.PricePath{}, err
	}
	start := time.Now()
	pred, err := f.model.Fit(ctx, X, y)
	if err != nil {
		return domsvc.PricePath{}, err
	}
	points := slices.Collect(Recursive(pred, closes[len(closes)-p.Window:], p.Horizon))
	for i, v := range points {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domsvc.PricePath{}, domsvc.NewFitError(f.Name(), "non-finite prediction at step %d", i+1)
		}
	}
	f.l.Debug("regressor fitted",
		applogger.String("model", f.Name()),
		applogger.String("symbol", history.Symbol),
		applogger.Int("train_rows", len(y)),
		applogger.Int("window", p.Window),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return domsvc.PricePath{Points: points}, nil
}

// Option configures the default ensemble members.
type Option func(*EnsembleConfig)

// EnsembleConfig groups the hyper-parameters of the three regressors.
type EnsembleConfig struct {
	SVR      SVRConfig
	Forest   ForestConfig
	Boosting BoostingConfig
	Logger   *applogger.Logger
}

func WithSVR(c SVRConfig) Option            { return func(e *EnsembleConfig) { e.SVR = c } }
func WithForest(c ForestConfig) Option      { return func(e *EnsembleConfig) { e.Forest = c } }
func WithBoosting(c BoostingConfig) Option  { return func(e *EnsembleConfig) { e.Boosting = c } }
func WithLogger(l *applogger.Logger) Option { return func(e *EnsembleConfig) { e.Logger = l } }

// NewEnsemble returns the SVR, random forest and gradient boosting forecasters.
func NewEnsemble(opts ...Option) []domsvc.PriceForecaster {
	var cfg EnsembleConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return []domsvc.PriceForecaster{
		NewWindowForecaster(NewSVR(cfg.SVR), cfg.Logger),
		NewWindowForecaster(NewRandomForest(cfg.Forest), cfg.Logger),
		NewWindowForecaster(NewGradientBoosting(cfg.Boosting), cfg.Logger),
	}
}

var (
	_ domsvc.PriceForecaster = (*WindowForecaster)(nil)
	_ Regressor              = (*SVR)(nil)
	_ Regressor              = (*RandomForest)(nil)
	_ Regressor              = (*GradientBoosting)(nil)
)
