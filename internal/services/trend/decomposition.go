package trend

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// DecompositionOption configures Decomposition.
type DecompositionOption func(*DecompositionConfig)

// DecompositionConfig mirrors the usual additive-model knobs.
type DecompositionConfig struct {
	Changepoints     int
	ChangepointRange float64
	ChangepointPrior float64
	SeasonalityPrior float64
	WeeklyOrder      int
	YearlyOrder      int
	YearlyMinDays    float64
	Logger           *applogger.Logger
}

// WithChangepoints sets the number of potential trend changepoints and the share of history they cover.
func WithChangepoints(n int, rangeShare float64) DecompositionOption {
	return func(c *DecompositionConfig) {
		c.Changepoints, c.ChangepointRange = n, rangeShare
	}
}

// WithSeasonality sets the Fourier orders. Zero disables a component.
func WithSeasonality(weekly, yearly int) DecompositionOption {
	return func(c *DecompositionConfig) {
		c.WeeklyOrder, c.YearlyOrder = weekly, yearly
	}
}

// WithDecompositionLogger sets the logger.
func WithDecompositionLogger(l *applogger.Logger) DecompositionOption {
	return func(c *DecompositionConfig) { c.Logger = l }
}

// Decomposition fits y(t) = piecewise-linear trend + weekly + yearly seasonality
// by ridge-penalised least squares on scaled time and scaled prices.
type Decomposition struct {
	cfg DecompositionConfig
}

func NewDecomposition(opts ...DecompositionOption) *Decomposition {
	cfg := DecompositionConfig{
		Changepoints:     25,
		ChangepointRange: 0.8,
		ChangepointPrior: 0.05,
		SeasonalityPrior: 10,
		WeeklyOrder:      3,
		YearlyOrder:      10,
		YearlyMinDays:    730,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Decomposition{cfg: cfg}
}

func (d *Decomposition) Name() string { return models.ComponentDecomposition }

func (d *Decomposition) MinHistory(domsvc.ForecastParams) int { return MinHistory }

type design struct {
	t0      time.Time
	span    float64
	cps     []float64
	weekly  int
	yearly  int
	columns int
}

func (ds *design) scaledTime(day time.Time) float64 {
	return day.Sub(ds.t0).Hours() / 24 / ds.span
}

func (ds *design) row(day time.Time, dst []float64) {
	t := ds.scaledTime(day)
	dst[0], dst[1] = 1, t
	c := 2
	for _, s := range ds.cps {
		dst[c] = math.Max(0, t-s)
		c++
	}
	epochDays := float64(day.Unix()) / 86400
	c = fourier(epochDays, 7, ds.weekly, dst, c)
	fourier(epochDays, 365.25, ds.yearly, dst, c)
}

func fourier(day, period float64, order int, dst []float64, c int) int {
	for k := 1; k <= order; k++ {
		arg := 2 * math.Pi * float64(k) * day / period
		dst[c], dst[c+1] = math.Sin(arg), math.Cos(arg)
		c += 2
	}
	return c
}

func (d *Decomposition) Forecast(ctx context.Context, history models.FeatureTable, p domsvc.ForecastParams) (domsvc.PricePath, error) {
	if err := checkInput(ctx, d.Name(), history, p); err != nil {
		return domsvc.PricePath{}, err
	}
	start := time.Now()
	y, dates := history.Closes(), history.Dates()
	n := len(y)

	scale := 0.0
	for _, v := range y {
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 {
		scale = 1
	}
	ys := make([]float64, n)
	for i, v := range y {
		ys[i] = v / scale
	}

	ds := &design{t0: dates[0], span: dates[n-1].Sub(dates[0]).Hours() / 24, weekly: d.cfg.WeeklyOrder}
	if ds.span <= 0 {
		return domsvc.PricePath{}, domsvc.NewFitError(d.Name(), "history spans no time")
	}
	if ds.span >= d.cfg.YearlyMinDays {
		ds.yearly = d.cfg.YearlyOrder
	}
	tt := make([]float64, n)
	for i, day := range dates {
		tt[i] = ds.scaledTime(day)
	}
	ds.cps = changepoints(tt, d.cfg.Changepoints, d.cfg.ChangepointRange)
	ds.columns = 2 + len(ds.cps) + 2*ds.weekly + 2*ds.yearly

	X := mat.NewDense(n, ds.columns, nil)
	buf := make([]float64, ds.columns)
	for i, day := range dates {
		ds.row(day, buf)
		X.SetRow(i, buf)
	}

	// Noise scale from a plain linear trend sets the ridge strength of each block.
	alpha, beta := stat.LinearRegression(tt, ys, nil, false)
	sigma2 := 0.0
	for i := range ys {
		r := ys[i] - alpha - beta*tt[i]
		sigma2 += r * r
	}
	sigma2 /= float64(max(n-2, 1))
	floor := 1e-6 * float64(n)
	lambdaCP := math.Max(sigma2/(d.cfg.ChangepointPrior*d.cfg.ChangepointPrior), floor)
	lambdaS := math.Max(sigma2/(d.cfg.SeasonalityPrior*d.cfg.SeasonalityPrior), floor)

	var normal mat.SymDense
	normal.SymOuterK(1, X.T())
	for j := 0; j < ds.columns; j++ {
		pen := 1e-10
		switch {
		case j < 2:
		case j < 2+len(ds.cps):
			pen += lambdaCP
		default:
			pen += lambdaS
		}
		normal.SetSym(j, j, normal.At(j, j)+pen)
	}
	var rhs mat.VecDense
	rhs.MulVec(X.T(), mat.NewVecDense(n, ys))

	if err := ctx.Err(); err != nil {
		return domsvc.PricePath{}, err
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(&normal); !ok {
		return domsvc.PricePath{}, domsvc.NewFitError(d.Name(), "normal equations not positive definite")
	}
	var coef mat.VecDense
	if err := chol.SolveVecTo(&coef, &rhs); err != nil {
		return domsvc.PricePath{}, domsvc.NewFitError(d.Name(), "solve: %v", err)
	}
	if err := ctx.Err(); err != nil {
		return domsvc.PricePath{}, err
	}

	future := util.BusinessDaysAfter(history.LastDate(), p.Horizon)
	points := make([]float64, p.Horizon)
	for i, day := range future {
		ds.row(day, buf)
		v := mat.Dot(mat.NewVecDense(ds.columns, buf), &coef) * scale
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domsvc.PricePath{}, domsvc.NewFitError(d.Name(), "non-finite forecast at step %d", i+1)
		}
		points[i] = v
	}

	d.cfg.Logger.Debug("decomposition fitted",
		applogger.String("symbol", history.Symbol),
		applogger.Int("changepoints", len(ds.cps)),
		applogger.Bool("yearly", ds.yearly > 0),
		applogger.Float64("final_slope", finalSlope(&coef, len(ds.cps))*scale/ds.span),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return domsvc.PricePath{Points: points}, nil
}

// changepoints places n candidates evenly over the first share of the history.
func changepoints(tt []float64, n int, share float64) []float64 {
	hist := int(math.Floor(float64(len(tt)) * share))
	if n > hist-1 {
		n = hist - 1
	}
	if n <= 0 {
		return nil
	}
	out := make([]float64, 0, n)
	for j := 1; j <= n; j++ {
		idx := int(math.Round(float64(j) * float64(hist-1) / float64(n)))
		out = append(out, tt[idx])
	}
	return out
}

func finalSlope(coef *mat.VecDense, ncp int) float64 {
	k := coef.AtVec(1)
	for j := 0; j < ncp; j++ {
		k += coef.AtVec(2 + j)
	}
	return k
}

var _ domsvc.PriceForecaster = (*Decomposition)(nil)
