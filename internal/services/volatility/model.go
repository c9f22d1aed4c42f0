// Package volatility forecasts the conditional standard deviation of daily
// percent log-returns with GARCH(1,1) and EGARCH(1,1).
package volatility

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	domsvc "FinCast/internal/domain/service"
	"FinCast/pkg/util"
)

// MinReturns is the shortest return series a model is fitted on.
const MinReturns = 30

var (
	log2Pi      = math.Log(2 * math.Pi)
	expectedAbs = math.Sqrt(2 / math.Pi) // E|z| for z ~ N(0,1)
)

// Model is one conditional-heteroskedasticity variant.
type Model interface {
	Name() string
	Forecast(ctx context.Context, returns []float64, h int) ([]float64, error)
}

func checkReturns(name string, r []float64) (float64, error) {
	if len(r) < MinReturns {
		return 0, domsvc.NewFitError(name, "need at least %d returns, have %d", MinReturns, len(r))
	}
	for _, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, domsvc.NewFitError(name, "non-finite return")
		}
	}
	_, variance := stat.PopMeanVariance(r, nil)
	if variance < 1e-12 {
		return 0, domsvc.NewFitError(name, "returns have zero variance")
	}
	s0 := 0.0
	for _, v := range r {
		s0 += v * v
	}
	return s0 / float64(len(r)), nil
}

// minimize runs Nelder-Mead and rejects runs that stopped on a limit.
func minimize(ctx context.Context, name string, f func([]float64) float64, x0 []float64, maxEval int) ([]float64, error) {
	settings := &optimize.Settings{FuncEvaluations: maxEval, Recorder: util.CtxRecorder{Ctx: ctx}}
	res, err := optimize.Minimize(optimize.Problem{Func: f}, x0, settings, &optimize.NelderMead{})
	if cerr := ctx.Err(); cerr != nil {
		return nil, fmt.Errorf("%s: %w", name, cerr)
	}
	if err != nil {
		return nil, domsvc.NewFitError(name, "optimizer: %v", err)
	}
	switch res.Status {
	case optimize.Failure, optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.RuntimeLimit:
		return nil, domsvc.NewFitError(name, "optimizer stopped: %v", res.Status)
	}
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) || res.F >= penalty {
		return nil, domsvc.NewFitError(name, "likelihood not finite")
	}
	return res.X, nil
}

const penalty = 1e12

func logistic(u float64) float64 { return 1 / (1 + math.Exp(-u)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func sqrtPath(variances []float64, name string) ([]float64, error) {
	out := make([]float64, len(variances))
	for i, v := range variances {
		s := math.Sqrt(v)
		if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
			return nil, domsvc.NewFitError(name, "non-positive variance at step %d", i+1)
		}
		out[i] = s
	}
	return out, nil
}
