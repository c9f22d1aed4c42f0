package trend

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

const (
	z95           = 1.959963984540054
	cssPenalty    = 1e10
	sigma2Floor   = 1e-12
	rootTolerance = 0.9999
)

// ARIMAOption configures ARIMA.
type ARIMAOption func(*ARIMAConfig)

// ARIMAConfig bounds the stepwise order search.
type ARIMAConfig struct {
	MaxP            int
	MaxQ            int
	MaxD            int
	MaxOrder        int
	MaxEvaluations  int
	MaxSearchRounds int
	Logger          *applogger.Logger
}

// WithMaxOrder bounds p, q and p+q.
func WithMaxOrder(p, q, total int) ARIMAOption {
	return func(c *ARIMAConfig) {
		c.MaxP, c.MaxQ, c.MaxOrder = p, q, total
	}
}

// WithMaxDifferencing bounds d.
func WithMaxDifferencing(d int) ARIMAOption {
	return func(c *ARIMAConfig) { c.MaxD = d }
}

// WithARIMALogger sets the logger used for order selection traces.
func WithARIMALogger(l *applogger.Logger) ARIMAOption {
	return func(c *ARIMAConfig) { c.Logger = l }
}

// ARIMA selects (p,d,q) automatically and forecasts with a 95% band.
type ARIMA struct {
	cfg ARIMAConfig
}

func NewARIMA(opts ...ARIMAOption) *ARIMA {
	cfg := ARIMAConfig{
		MaxP:            5,
		MaxQ:            5,
		MaxD:            2,
		MaxOrder:        5,
		MaxEvaluations:  3000,
		MaxSearchRounds: 100,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ARIMA{cfg: cfg}
}

func (a *ARIMA) Name() string { return models.ComponentARIMA }

func (a *ARIMA) MinHistory(domsvc.ForecastParams) int { return MinHistory }

// Forecast fits on the full close history and returns Horizon points with the 95% band.
func (a *ARIMA) Forecast(ctx context.Context, history models.FeatureTable, p domsvc.ForecastParams) (domsvc.PricePath, error) {
	if err := checkInput(ctx, a.Name(), history, p); err != nil {
		return domsvc.PricePath{}, err
	}
	start := time.Now()
	y := history.Closes()

	d := ndiffs(y, a.cfg.MaxD)
	levels := [][]float64{y}
	for i := 0; i < d; i++ {
		levels = append(levels, diff(levels[i]))
	}
	w := levels[d]

	fit, tried, err := a.search(ctx, w, d <= 1)
	if err != nil {
		return domsvc.PricePath{}, err
	}

	wf := fit.forecast(p.Horizon)
	points := integrate(wf, levels)
	psi := psiWeights(fit.phi, fit.theta, d, p.Horizon)

	out := domsvc.PricePath{
		Points: points,
		Lower:  make([]float64, p.Horizon),
		Upper:  make([]float64, p.Horizon),
	}
	acc := 0.0
	for h := 0; h < p.Horizon; h++ {
		if math.IsNaN(points[h]) || math.IsInf(points[h], 0) {
			return domsvc.PricePath{}, domsvc.NewFitError(a.Name(), "non-finite forecast at step %d", h+1)
		}
		acc += psi[h] * psi[h]
		half := z95 * math.Sqrt(fit.sigma2*acc)
		out.Lower[h] = points[h] - half
		out.Upper[h] = points[h] + half
	}

	a.cfg.Logger.Debug("arima fitted",
		applogger.String("symbol", history.Symbol),
		applogger.Int("p", fit.p),
		applogger.Int("d", d),
		applogger.Int("q", fit.q),
		applogger.Bool("intercept", fit.intercept),
		applogger.Float64("aicc", fit.aicc),
		applogger.Int("candidates", tried),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

type order struct{ p, q int }

// search runs the stepwise AICc search over ARMA orders of the differenced series.
func (a *ARIMA) search(ctx context.Context, w []float64, intercept bool) (*armaFit, int, error) {
	visited := make(map[order]*armaFit)
	try := func(o order) (*armaFit, error) {
		if o.p < 0 || o.q < 0 || o.p > a.cfg.MaxP || o.q > a.cfg.MaxQ || o.p+o.q > a.cfg.MaxOrder {
			return nil, nil
		}
		if f, ok := visited[o]; ok {
			return f, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", models.ComponentARIMA, err)
		}
		f := fitARMA(ctx, w, o.p, o.q, intercept, a.cfg.MaxEvaluations)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", models.ComponentARIMA, err)
		}
		visited[o] = f
		return f, nil
	}

	var best *armaFit
	for _, o := range []order{{2, 2}, {0, 0}, {1, 0}, {0, 1}} {
		f, err := try(o)
		if err != nil {
			return nil, len(visited), err
		}
		if f.better(best) {
			best = f
		}
	}
	if best == nil {
		return nil, len(visited), domsvc.NewFitError(models.ComponentARIMA, "no candidate order converged")
	}

	steps := []order{{-1, 0}, {1, 0}, {0, -1}, {0, 1}, {-1, -1}, {1, 1}, {-1, 1}, {1, -1}}
	for round := 0; round < a.cfg.MaxSearchRounds; round++ {
		next := best
		for _, s := range steps {
			f, err := try(order{best.p + s.p, best.q + s.q})
			if err != nil {
				return nil, len(visited), err
			}
			if f.better(next) {
				next = f
			}
		}
		if next == best {
			break
		}
		best = next
	}
	return best, len(visited), nil
}

type armaFit struct {
	p, q      int
	phi       []float64
	theta     []float64
	mean      float64
	intercept bool
	x         []float64
	resid     []float64
	sigma2    float64
	aicc      float64
}

// better reports whether f has a strictly lower AICc than other. A nil f is never better.
func (f *armaFit) better(other *armaFit) bool {
	if f == nil || math.IsNaN(f.aicc) || math.IsInf(f.aicc, 1) {
		return false
	}
	return other == nil || f.aicc < other.aicc-1e-9
}

// fitARMA estimates ARMA(p,q) by conditional sum of squares. It returns nil when
// no admissible parameter set is found.
func fitARMA(ctx context.Context, w []float64, p, q int, intercept bool, maxEval int) *armaFit {
	n := len(w)
	if n-p <= p+q+2 {
		return nil
	}
	mean := 0.0
	if intercept {
		mean = stat.Mean(w, nil)
	}
	x := make([]float64, n)
	for i, v := range w {
		x[i] = v - mean
	}

	var phi, theta []float64
	if k := p + q; k > 0 {
		obj := func(params []float64) float64 {
			ph, th := params[:p], params[p:]
			if !stationary(ph) || !stationary(negate(th)) {
				return cssPenalty
			}
			sse, _ := css(x, ph, th)
			if math.IsNaN(sse) || math.IsInf(sse, 0) {
				return cssPenalty
			}
			return sse / float64(n-p)
		}
		res, _ := optimize.Minimize(
			optimize.Problem{Func: obj},
			make([]float64, k),
			&optimize.Settings{FuncEvaluations: maxEval, Recorder: util.CtxRecorder{Ctx: ctx}},
			&optimize.NelderMead{},
		)
		if res == nil || res.F >= cssPenalty {
			return nil
		}
		phi = append([]float64(nil), res.X[:p]...)
		theta = append([]float64(nil), res.X[p:]...)
	}

	sse, resid := css(x, phi, theta)
	nEff := float64(n - p)
	sigma2 := math.Max(sse/nEff, sigma2Floor)
	loglik := -0.5 * nEff * (math.Log(2*math.Pi*sigma2) + 1)
	k := float64(p + q + 1)
	if intercept {
		k++
	}
	aicc := math.Inf(1)
	if nEff-k-1 > 0 {
		aicc = -2*loglik + 2*k + 2*k*(k+1)/(nEff-k-1)
	}
	return &armaFit{
		p: p, q: q, phi: phi, theta: theta,
		mean: mean, intercept: intercept,
		x: x, resid: resid, sigma2: sigma2, aicc: aicc,
	}
}

// css returns the conditional sum of squares, conditioning on the first p values.
func css(x, phi, theta []float64) (float64, []float64) {
	p, q := len(phi), len(theta)
	e := make([]float64, len(x))
	sse := 0.0
	for t := p; t < len(x); t++ {
		v := x[t]
		for i := 1; i <= p; i++ {
			v -= phi[i-1] * x[t-i]
		}
		for j := 1; j <= q && t-j >= 0; j++ {
			v -= theta[j-1] * e[t-j]
		}
		e[t] = v
		sse += v * v
	}
	return sse, e
}

// forecast runs the ARMA recursion with future shocks set to zero and restores the mean.
func (f *armaFit) forecast(h int) []float64 {
	n := len(f.x)
	xs := append(append([]float64(nil), f.x...), make([]float64, h)...)
	es := append(append([]float64(nil), f.resid...), make([]float64, h)...)
	out := make([]float64, h)
	for t := n; t < n+h; t++ {
		v := 0.0
		for i := 1; i <= f.p && t-i >= 0; i++ {
			v += f.phi[i-1] * xs[t-i]
		}
		for j := 1; j <= f.q && t-j >= 0; j++ {
			v += f.theta[j-1] * es[t-j]
		}
		xs[t] = v
		out[t-n] = v + f.mean
	}
	return out
}

// integrate undoes differencing: levels[k] is the series differenced k times.
func integrate(wf []float64, levels [][]float64) []float64 {
	cur := append([]float64(nil), wf...)
	for k := len(levels) - 2; k >= 0; k-- {
		last := levels[k][len(levels[k])-1]
		for i := range cur {
			last += cur[i]
			cur[i] = last
		}
	}
	return cur
}

// psiWeights returns the MA(infinity) weights of ARIMA(p,d,q), psi[0] = 1.
func psiWeights(phi, theta []float64, d, h int) []float64 {
	poly := []float64{1}
	for _, v := range phi {
		poly = append(poly, -v)
	}
	for k := 0; k < d; k++ {
		next := make([]float64, len(poly)+1)
		for i, v := range poly {
			next[i] += v
			next[i+1] -= v
		}
		poly = next
	}
	psi := make([]float64, h)
	if h == 0 {
		return psi
	}
	psi[0] = 1
	for j := 1; j < h; j++ {
		v := 0.0
		if j <= len(theta) {
			v = theta[j-1]
		}
		for i := 1; i < len(poly) && i <= j; i++ {
			v -= poly[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

// stationary checks that x_t = sum a_i x_{t-i} + e_t has all roots outside the
// unit circle by stepping the coefficients down to partial autocorrelations.
func stationary(a []float64) bool {
	cur := append([]float64(nil), a...)
	for k := len(cur); k >= 1; k-- {
		kappa := cur[k-1]
		if math.IsNaN(kappa) || math.Abs(kappa) >= rootTolerance {
			return false
		}
		denom := 1 - kappa*kappa
		prev := make([]float64, k-1)
		for j := 1; j < k; j++ {
			prev[j-1] = (cur[j-1] + kappa*cur[k-j-1]) / denom
		}
		cur = prev
	}
	return true
}

func negate(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = -v
	}
	return out
}

var _ domsvc.PriceForecaster = (*ARIMA)(nil)
