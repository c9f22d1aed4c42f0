package usecase

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
)

const tradingDays = 252

// TableForecaster is the part of ForecastUseCase the evaluator drives.
type TableForecaster interface {
	Forecast(ctx context.Context, table models.FeatureTable, cfg models.RunConfig) (*models.ForecastTable, error)
}

// BacktestUseCase holds out the last days of a table, forecasts them from the
// rest and scores the forecast against the actual closes.
type BacktestUseCase struct {
	forecaster TableForecaster
	l          *applogger.Logger
	m          domrepo.Metrics
}

func NewBacktestUseCase(f TableForecaster, l *applogger.Logger, m domrepo.Metrics) *BacktestUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &BacktestUseCase{forecaster: f, l: l, m: m}
}

// Evaluate splits off the last testDays rows. testDays <= 0 uses cfg.BacktestDays.
func (uc *BacktestUseCase) Evaluate(ctx context.Context, table models.FeatureTable, testDays int, cfg models.RunConfig) (*models.BacktestResult, error) {
	if testDays <= 0 {
		testDays = cfg.BacktestDays
	}
	if testDays < 2 {
		return nil, &domsvc.ConfigError{Field: "test_days", Reason: "must be >= 2"}
	}
	if table.Len() <= testDays {
		return nil, &domsvc.InsufficientHistoryError{Component: "backtest", Need: testDays + 1, Have: table.Len()}
	}

	train := table.Head(table.Len() - testDays)
	test := table.Tail(testDays)
	cfg.Horizon = testDays

	ft, err := uc.forecaster.Forecast(ctx, train, cfg)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", table.Symbol, err)
	}

	actual := test.Closes()
	predicted := ft.Final()
	res := &models.BacktestResult{
		Symbol:              table.Symbol,
		TestDays:            testDays,
		TrainEnd:            train.LastDate(),
		TestStart:           test.Rows[0].Date,
		TestEnd:             test.LastDate(),
		RMSE:                RMSE(actual, predicted),
		MAPE:                MAPE(actual, predicted),
		DirectionalAccuracy: DirectionalAccuracy(actual, predicted),
		Sharpe:              Sharpe(predicted),
		Actual:              actual,
		Predicted:           predicted,
		Degradations:        ft.Degradations,
	}
	uc.m.RecordBacktest(table.Symbol, res)
	uc.l.Info("backtest finished",
		applogger.String("symbol", table.Symbol),
		applogger.Int("test_days", testDays),
		applogger.Float64("rmse", res.RMSE),
		applogger.Float64("mape", res.MAPE),
		applogger.Float64("directional_accuracy", res.DirectionalAccuracy),
		applogger.Float64("sharpe", res.Sharpe),
	)
	return res, nil
}

func RMSE(actual, predicted []float64) float64 {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return 0
	}
	s := 0.0
	for i := range n {
		d := actual[i] - predicted[i]
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

// MAPE is in percent. Zero actuals are skipped.
func MAPE(actual, predicted []float64) float64 {
	n := min(len(actual), len(predicted))
	s, k := 0.0, 0
	for i := range n {
		if actual[i] == 0 {
			continue
		}
		s += math.Abs((actual[i] - predicted[i]) / actual[i])
		k++
	}
	if k == 0 {
		return 0
	}
	return s / float64(k) * 100
}

// DirectionalAccuracy is the percentage of the n-1 day-over-day moves whose
// sign matches. A flat move only matches a flat move.
func DirectionalAccuracy(actual, predicted []float64) float64 {
	n := min(len(actual), len(predicted))
	if n < 2 {
		return 0
	}
	hits := 0
	for i := 1; i < n; i++ {
		if sign(actual[i]-actual[i-1]) == sign(predicted[i]-predicted[i-1]) {
			hits++
		}
	}
	return float64(hits) / float64(n-1) * 100
}

// Sharpe annualises mean/stddev of the daily percent changes of a path.
// It is 0 when the deviation is zero or undefined.
func Sharpe(path []float64) float64 {
	if len(path) < 3 {
		return 0
	}
	changes := make([]float64, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		if path[i-1] == 0 {
			continue
		}
		changes = append(changes, path[i]/path[i-1]-1)
	}
	if len(changes) < 2 {
		return 0
	}
	mean, std := stat.MeanStdDev(changes, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return mean / std * math.Sqrt(tradingDays)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
