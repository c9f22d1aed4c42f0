package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/regression"
	"FinCast/internal/services/trend"
	"FinCast/internal/services/volatility"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/util"
)

const weightTolerance = 1e-9

// CombinerOption configures ForecastUseCase.
type CombinerOption func(*ForecastUseCase)

// WithTrendForecasters replaces the ARIMA + decomposition pair. The first
// member that returns a band supplies Lower, Upper and Confidence.
func WithTrendForecasters(f ...domsvc.PriceForecaster) CombinerOption {
	return func(uc *ForecastUseCase) { uc.trend = append([]domsvc.PriceForecaster{}, f...) }
}

// WithRegressionForecasters replaces the SVR, forest and boosting ensemble.
func WithRegressionForecasters(f ...domsvc.PriceForecaster) CombinerOption {
	return func(uc *ForecastUseCase) { uc.regression = append([]domsvc.PriceForecaster{}, f...) }
}

func WithVolatilityForecaster(v domsvc.VolatilityForecaster) CombinerOption {
	return func(uc *ForecastUseCase) { uc.vol = v }
}

func WithCombinerLogger(l *applogger.Logger) CombinerOption {
	return func(uc *ForecastUseCase) { uc.l = l }
}

func WithCombinerMetrics(m domrepo.Metrics) CombinerOption {
	return func(uc *ForecastUseCase) { uc.m = m }
}

// WithClock overrides the GeneratedAt timestamp source.
func WithClock(now func() time.Time) CombinerOption {
	return func(uc *ForecastUseCase) { uc.now = now }
}

// ForecastUseCase runs every leaf forecaster on one feature table and merges
// their paths into a ForecastTable.
type ForecastUseCase struct {
	trend      []domsvc.PriceForecaster
	regression []domsvc.PriceForecaster
	vol        domsvc.VolatilityForecaster
	l          *applogger.Logger
	m          domrepo.Metrics
	now        func() time.Time
	validate   *validator.Validate
}

func NewForecastUseCase(opts ...CombinerOption) *ForecastUseCase {
	uc := &ForecastUseCase{now: time.Now, validate: validator.New()}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.l == nil {
		uc.l = applogger.Nop()
	}
	if uc.m == nil {
		uc.m = metrics.Nop{}
	}
	if uc.trend == nil {
		uc.trend = []domsvc.PriceForecaster{
			trend.NewARIMA(trend.WithARIMALogger(uc.l)),
			trend.NewDecomposition(trend.WithDecompositionLogger(uc.l)),
		}
	}
	if uc.regression == nil {
		uc.regression = regression.NewEnsemble(regression.WithLogger(uc.l))
	}
	if uc.vol == nil {
		uc.vol = volatility.NewForecaster(volatility.WithLogger(uc.l))
	}
	return uc
}

// ValidateConfig checks tags and the weight sum.
func (uc *ForecastUseCase) ValidateConfig(cfg models.RunConfig) error {
	if err := uc.validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return &domsvc.ConfigError{Field: ve[0].Field(), Reason: fmt.Sprintf("failed %q check (value %v)", ve[0].Tag(), ve[0].Value())}
		}
		return &domsvc.ConfigError{Field: "config", Reason: err.Error()}
	}
	if math.Abs(cfg.TSWeight+cfg.MLWeight-1) > weightTolerance {
		return &domsvc.ConfigError{Field: "weights", Reason: fmt.Sprintf("ts_weight + ml_weight = %g, must be 1", cfg.TSWeight+cfg.MLWeight)}
	}
	return nil
}

// MinHistory is the longest history any configured price forecaster needs.
func (uc *ForecastUseCase) MinHistory(cfg models.RunConfig) (int, string) {
	p := domsvc.ForecastParams{Horizon: cfg.Horizon, Window: cfg.WindowSize}
	need, who := 0, ""
	for _, f := range uc.forecasters() {
		if n := f.MinHistory(p); n > need {
			need, who = n, f.Name()
		}
	}
	return need, who
}

func (uc *ForecastUseCase) forecasters() []domsvc.PriceForecaster {
	out := make([]domsvc.PriceForecaster, 0, len(uc.trend)+len(uc.regression))
	out = append(out, uc.trend...)
	return append(out, uc.regression...)
}

type leafResult struct {
	name  string
	group string
	path  domsvc.PricePath
	vol   []float64
	err   error
}

// Forecast validates cfg and the history length, fits every leaf and combines them.
func (uc *ForecastUseCase) Forecast(ctx context.Context, table models.FeatureTable, cfg models.RunConfig) (*models.ForecastTable, error) {
	if err := uc.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if len(uc.forecasters()) == 0 {
		return nil, domsvc.ErrNoForecasters
	}
	if need, who := uc.MinHistory(cfg); table.Len() < need {
		return nil, &domsvc.InsufficientHistoryError{Component: who, Need: need, Have: table.Len()}
	}

	start := time.Now()
	results, err := uc.runLeaves(ctx, table, cfg)
	if err != nil {
		return nil, err
	}
	out, err := uc.combine(table, cfg, results)
	if err != nil {
		uc.m.RecordError("no_forecasters")
		return nil, err
	}
	uc.m.RecordLatency("forecast", time.Since(start).Seconds())
	uc.l.Debug("forecast combined",
		applogger.String("symbol", table.Symbol),
		applogger.Int("n_future", cfg.Horizon),
		applogger.Int("degradations", len(out.Degradations)),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (uc *ForecastUseCase) runLeaves(ctx context.Context, table models.FeatureTable, cfg models.RunConfig) (map[string]leafResult, error) {
	p := domsvc.ForecastParams{Horizon: cfg.Horizon, Window: cfg.WindowSize}
	returns := table.LogReturnsPct()

	var jobs []func() leafResult
	add := func(group string, f domsvc.PriceForecaster) {
		jobs = append(jobs, func() leafResult {
			lctx, cancel := context.WithTimeout(ctx, cfg.ForecasterTimeout)
			defer cancel()
			t0 := time.Now()
			path, err := f.Forecast(lctx, table, p)
			err = overrun(lctx, f.Name(), err)
			if err == nil && len(path.Points) != cfg.Horizon {
				err = domsvc.NewFitError(f.Name(), "returned %d points, want %d", len(path.Points), cfg.Horizon)
			}
			uc.m.ObserveForecaster(f.Name(), time.Since(t0).Seconds(), err)
			return leafResult{name: f.Name(), group: group, path: path, err: err}
		})
	}
	for _, f := range uc.trend {
		add(models.GroupTrend, f)
	}
	for _, f := range uc.regression {
		add(models.GroupRegression, f)
	}
	jobs = append(jobs, func() leafResult {
		lctx, cancel := context.WithTimeout(ctx, cfg.ForecasterTimeout)
		defer cancel()
		t0 := time.Now()
		v, err := uc.vol.Forecast(lctx, returns, cfg.Horizon)
		err = overrun(lctx, models.ComponentVolatility, err)
		uc.m.ObserveForecaster(models.ComponentVolatility, time.Since(t0).Seconds(), err)
		return leafResult{name: models.ComponentVolatility, vol: v, err: err}
	})

	results := make(map[string]leafResult, len(jobs))
	if cfg.Parallel {
		ch := make(chan leafResult, len(jobs))
		var wg sync.WaitGroup
		for _, job := range jobs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ch <- job()
			}()
		}
		go func() { wg.Wait(); close(ch) }()
		for r := range ch {
			results[r.name] = r
		}
	} else {
		for _, job := range jobs {
			r := job()
			results[r.name] = r
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("forecast %s: %w", table.Symbol, err)
	}
	for _, r := range results {
		if errors.Is(r.err, domsvc.ErrInsufficientHistory) {
			return nil, r.err
		}
	}
	return results, nil
}

// overrun turns a result delivered after the forecaster's deadline into a fit
// failure, so late values are never blended in.
func overrun(lctx context.Context, component string, err error) error {
	if err != nil || lctx.Err() == nil {
		return err
	}
	return &domsvc.FitError{Component: component, Err: lctx.Err()}
}

func (uc *ForecastUseCase) combine(table models.FeatureTable, cfg models.RunConfig, results map[string]leafResult) (*models.ForecastTable, error) {
	h := cfg.Horizon
	out := &models.ForecastTable{
		Symbol:      table.Symbol,
		GeneratedAt: uc.now().UTC(),
		LastDate:    table.LastDate(),
		LastClose:   table.LastClose(),
		Rows:        make([]models.ForecastRow, h),
	}
	for i, d := range util.BusinessDaysAfter(table.LastDate(), h) {
		out.Rows[i].Date = d
	}

	degrade := func(component, reason string) {
		out.Degradations = append(out.Degradations, models.Degradation{Component: component, Reason: reason})
		uc.m.RecordDegradation(component)
		uc.l.Warn("degraded ensemble",
			applogger.String("symbol", table.Symbol),
			applogger.String("component", component),
			applogger.String("reason", reason),
		)
	}

	members := func(fs []domsvc.PriceForecaster) []domsvc.PricePath {
		var ok []domsvc.PricePath
		for _, f := range fs {
			r := results[f.Name()]
			if r.err != nil {
				degrade(f.Name(), r.err.Error())
				continue
			}
			for i, v := range r.path.Points {
				out.Rows[i].SetComponent(f.Name(), models.Some(v))
			}
			ok = append(ok, r.path)
		}
		return ok
	}
	trendPaths := members(uc.trend)
	mlPaths := members(uc.regression)

	w := cfg.Weights()
	switch {
	case len(trendPaths) == 0 && len(mlPaths) == 0:
		return nil, fmt.Errorf("forecast %s: %w", table.Symbol, domsvc.ErrNoForecasters)
	case len(trendPaths) == 0:
		degrade(models.GroupTrend, "every trend forecaster failed, regression takes full weight")
		w = models.Weights{TS: 0, ML: 1}
	case len(mlPaths) == 0:
		degrade(models.GroupRegression, "every regressor failed, trend takes full weight")
		w = models.Weights{TS: 1, ML: 0}
	}
	out.Weights = w

	var band *domsvc.PricePath
	for i := range trendPaths {
		if trendPaths[i].HasBand() {
			band = &trendPaths[i]
			break
		}
	}

	for i := range out.Rows {
		row := &out.Rows[i]
		ts, tsOK := meanAt(trendPaths, i)
		ml, mlOK := meanAt(mlPaths, i)
		if tsOK {
			row.TSEnsemble = models.Some(ts)
		}
		if mlOK {
			row.MLEnsemble = models.Some(ml)
		}
		row.FinalEnsemble = w.TS*row.TSEnsemble.Or(0) + w.ML*row.MLEnsemble.Or(0)
		if band != nil {
			row.Lower = models.Some(band.Lower[i])
			row.Upper = models.Some(band.Upper[i])
			row.Confidence = confidence(band.Upper[i]-band.Lower[i], row.FinalEnsemble)
		}
	}

	vr := results[models.ComponentVolatility]
	if vr.err != nil || len(vr.vol) != h {
		reason := "volatility path unavailable"
		if vr.err != nil {
			reason = vr.err.Error()
		}
		degrade(models.ComponentVolatility, reason)
	} else {
		for i, v := range vr.vol {
			out.Rows[i].Volatility = models.Some(v)
		}
	}
	return out, nil
}

func meanAt(paths []domsvc.PricePath, i int) (float64, bool) {
	if len(paths) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, p := range paths {
		sum += p.Points[i]
	}
	return sum / float64(len(paths)), true
}

// confidence is 1 - halfWidth/|final| clamped to [0, 1].
func confidence(width, final float64) models.Estimate {
	if final == 0 || math.IsNaN(width) {
		return models.None()
	}
	c := 1 - (width/2)/math.Abs(final)
	return models.Some(math.Min(1, math.Max(0, c)))
}
