package regression

import (
	"context"
	"fmt"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

// BoostingConfig configures GradientBoosting.
type BoostingConfig struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
	MinLeaf      int
}

// GradientBoosting fits shallow trees to least-squares residuals on raw windows.
type GradientBoosting struct {
	cfg BoostingConfig
}

func NewGradientBoosting(cfg BoostingConfig) *GradientBoosting {
	if cfg.Rounds == 0 {
		cfg.Rounds = 100
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.1
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 5
	}
	if cfg.MinLeaf == 0 {
		cfg.MinLeaf = 20
	}
	return &GradientBoosting{cfg: cfg}
}

func (g *GradientBoosting) Name() string { return models.ComponentBoost }

type boostModel struct {
	base  float64
	rate  float64
	trees []*regressionTree
}

func (m *boostModel) Predict(window []float64) float64 {
	v := m.base
	for _, t := range m.trees {
		v += m.rate * t.predict(window)
	}
	return v
}

func (g *GradientBoosting) Fit(ctx context.Context, X [][]float64, y []float64) (Predictor, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, domsvc.NewFitError(g.Name(), "bad training shape: %d rows, %d targets", n, len(y))
	}
	m := &boostModel{rate: g.cfg.LearningRate}
	for _, v := range y {
		m.base += v
	}
	m.base /= float64(n)

	pred := make([]float64, n)
	resid := make([]float64, n)
	idx := make([]int, n)
	for i := range pred {
		pred[i] = m.base
		idx[i] = i
	}
	p := treeParams{maxDepth: g.cfg.MaxDepth, minLeaf: g.cfg.MinLeaf}
	for r := 0; r < g.cfg.Rounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", g.Name(), err)
		}
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		t := buildTree(X, resid, idx, p)
		if len(t.nodes) == 1 && t.nodes[0].value == 0 {
			break
		}
		m.trees = append(m.trees, t)
		for i := range pred {
			pred[i] += m.rate * t.predict(X[i])
		}
	}
	return m, nil
}
