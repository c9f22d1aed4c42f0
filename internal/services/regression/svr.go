package regression

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

// SVRConfig holds the epsilon-SVR hyper-parameters.
type SVRConfig struct {
	C         float64
	Gamma     float64
	Epsilon   float64
	Tolerance float64
	MaxPasses int
	Seed      uint64
}

// SVR is an epsilon-insensitive support vector regressor with an RBF kernel.
// Inputs and target are standardized independently; the bias is folded into
// the kernel (K+1) and the dual is solved by coordinate descent.
type SVR struct {
	cfg SVRConfig
}

func NewSVR(cfg SVRConfig) *SVR {
	if cfg.C == 0 {
		cfg.C = 100
	}
	if cfg.Gamma == 0 {
		cfg.Gamma = 0.1
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 0.1
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = 1e-4
	}
	if cfg.MaxPasses == 0 {
		cfg.MaxPasses = 300
	}
	return &SVR{cfg: cfg}
}

func (s *SVR) Name() string { return models.ComponentSVR }

type svrModel struct {
	xs    *Scaler
	ys    *Scaler
	sv    [][]float64
	beta  []float64
	gamma float64
}

func (m *svrModel) Predict(window []float64) float64 {
	x := m.xs.Transform(window)
	f := 0.0
	for i, sv := range m.sv {
		f += m.beta[i] * (rbf(sv, x, m.gamma) + 1)
	}
	return m.ys.Inverse(f)
}

func rbf(a, b []float64, gamma float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-gamma * d)
}

func (s *SVR) Fit(ctx context.Context, X [][]float64, y []float64) (Predictor, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, domsvc.NewFitError(s.Name(), "bad training shape: %d rows, %d targets", n, len(y))
	}
	xs, ys := FitScaler(X), FitScalar(y)
	Z := xs.TransformAll(X)
	t := make([]float64, n)
	for i, v := range y {
		t[i] = (v - ys.Mean[0]) / ys.Std[0]
	}

	K := make([][]float64, n)
	for i := range K {
		K[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		K[i][i] = 2
		for j := i + 1; j < n; j++ {
			k := rbf(Z[i], Z[j], s.cfg.Gamma) + 1
			K[i][j], K[j][i] = k, k
		}
	}

	beta := make([]float64, n)
	grad := make([]float64, n) // sum_j beta_j K_ij
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewPCG(s.cfg.Seed, 0x5eed))
	for pass := 0; pass < s.cfg.MaxPasses; pass++ {
		if pass%20 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%s: %w", s.Name(), err)
			}
		}
		rng.Shuffle(n, func(a, b int) { order[a], order[b] = order[b], order[a] })
		maxDelta := 0.0
		for _, i := range order {
			kii := K[i][i]
			c := grad[i] - kii*beta[i] - t[i]
			var nb float64
			switch {
			case c < -s.cfg.Epsilon:
				nb = (-c - s.cfg.Epsilon) / kii
			case c > s.cfg.Epsilon:
				nb = (-c + s.cfg.Epsilon) / kii
			}
			nb = math.Max(-s.cfg.C, math.Min(s.cfg.C, nb))
			delta := nb - beta[i]
			if delta == 0 {
				continue
			}
			beta[i] = nb
			row := K[i]
			for j := range grad {
				grad[j] += delta * row[j]
			}
			maxDelta = math.Max(maxDelta, math.Abs(delta))
		}
		if maxDelta < s.cfg.Tolerance {
			break
		}
	}

	m := &svrModel{xs: xs, ys: ys, gamma: s.cfg.Gamma}
	for i, b := range beta {
		if b != 0 {
			m.sv = append(m.sv, Z[i])
			m.beta = append(m.beta, b)
		}
	}
	for _, b := range m.beta {
		if math.IsNaN(b) {
			return nil, domsvc.NewFitError(s.Name(), "dual diverged")
		}
	}
	return m, nil
}
