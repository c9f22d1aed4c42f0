package volatility

import (
	"context"
	"fmt"
	"math"
)

// EGARCH is a zero-mean EGARCH(1,1) with normal innovations:
// ln s2[t] = omega + alpha*(|z[t-1]| - sqrt(2/pi)) + gamma*z[t-1] + beta*ln s2[t-1].
type EGARCH struct {
	MaxEvaluations int
}

func NewEGARCH() *EGARCH { return &EGARCH{MaxEvaluations: 5000} }

func (e *EGARCH) Name() string { return "egarch" }

type egarchParams struct{ omega, alpha, gamma, beta float64 }

func decodeEGARCH(u []float64) egarchParams {
	return egarchParams{omega: u[0], alpha: u[1], gamma: u[2], beta: 0.9999 * math.Tanh(u[3])}
}

func (p egarchParams) step(logS2, absZ, z float64) float64 {
	return p.omega + p.alpha*(absZ-expectedAbs) + p.gamma*z + p.beta*logS2
}

// filter returns the negative log-likelihood and ln s2 at the last observation.
func (p egarchParams) filter(r []float64, s0 float64) (float64, float64) {
	l := math.Log(s0)
	nll := 0.0
	for t, v := range r {
		if t > 0 {
			s := math.Exp(0.5 * l)
			z := r[t-1] / s
			l = p.step(l, math.Abs(z), z)
		}
		if math.IsNaN(l) || l > 50 || l < -50 {
			return penalty, 0
		}
		nll += 0.5 * (log2Pi + l + v*v/math.Exp(l))
	}
	return nll, l
}

// Forecast fits by maximum likelihood, then rolls the log-variance forward from the
// last fitted value feeding the expected innovations E|z| = sqrt(2/pi) and E[z] = 0.
func (e *EGARCH) Forecast(ctx context.Context, r []float64, h int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name(), err)
	}
	s0, err := checkReturns(e.Name(), r)
	if err != nil {
		return nil, err
	}
	x0 := []float64{0.05 * math.Log(s0), 0.1, 0, math.Atanh(0.95 / 0.9999)}
	u, err := minimize(ctx, e.Name(), func(u []float64) float64 {
		nll, _ := decodeEGARCH(u).filter(r, s0)
		return nll
	}, x0, e.MaxEvaluations)
	if err != nil {
		return nil, err
	}
	p := decodeEGARCH(u)
	_, logS2 := p.filter(r, s0)

	variances := make([]float64, h)
	for k := 0; k < h; k++ {
		logS2 = p.step(logS2, expectedAbs, 0)
		variances[k] = math.Exp(logS2)
	}
	return sqrtPath(variances, e.Name())
}

var _ Model = (*EGARCH)(nil)
