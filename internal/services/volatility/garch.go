package volatility

import (
	"context"
	"fmt"
	"math"
)

// GARCH is a zero-mean GARCH(1,1) with normal innovations:
// s2[t] = omega + alpha*r[t-1]^2 + beta*s2[t-1].
type GARCH struct {
	MaxEvaluations int
}

func NewGARCH() *GARCH { return &GARCH{MaxEvaluations: 5000} }

func (g *GARCH) Name() string { return "garch" }

type garchParams struct{ omega, alpha, beta float64 }

// decode maps unconstrained values to omega > 0, alpha, beta >= 0, alpha+beta < 1.
func decodeGARCH(u []float64) garchParams {
	persistence := 0.9999 * logistic(u[1])
	alpha := persistence * logistic(u[2])
	return garchParams{omega: math.Exp(u[0]), alpha: alpha, beta: persistence - alpha}
}

// filter returns the negative log-likelihood and the variance at the last observation.
func (p garchParams) filter(r []float64, s0 float64) (float64, float64) {
	s2 := s0
	nll := 0.0
	for t, v := range r {
		if t > 0 {
			s2 = p.omega + p.alpha*r[t-1]*r[t-1] + p.beta*s2
		}
		if s2 <= 0 || math.IsNaN(s2) {
			return penalty, 0
		}
		nll += 0.5 * (log2Pi + math.Log(s2) + v*v/s2)
	}
	return nll, s2
}

// Forecast fits by maximum likelihood and forecasts analytically:
// s2[T+1] = omega + alpha*r[T]^2 + beta*s2[T], s2[T+k] = omega + (alpha+beta)*s2[T+k-1].
func (g *GARCH) Forecast(ctx context.Context, r []float64, h int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", g.Name(), err)
	}
	s0, err := checkReturns(g.Name(), r)
	if err != nil {
		return nil, err
	}
	x0 := []float64{math.Log(0.1 * s0), logit(0.9 / 0.9999), logit(0.1)}
	u, err := minimize(ctx, g.Name(), func(u []float64) float64 {
		nll, _ := decodeGARCH(u).filter(r, s0)
		return nll
	}, x0, g.MaxEvaluations)
	if err != nil {
		return nil, err
	}
	p := decodeGARCH(u)
	_, last := p.filter(r, s0)

	variances := make([]float64, h)
	rt := r[len(r)-1]
	next := p.omega + p.alpha*rt*rt + p.beta*last
	for k := 0; k < h; k++ {
		variances[k] = next
		next = p.omega + (p.alpha+p.beta)*next
	}
	return sqrtPath(variances, g.Name())
}

var _ Model = (*GARCH)(nil)
