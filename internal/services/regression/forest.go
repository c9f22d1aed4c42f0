package regression

import (
	"context"
	"fmt"
	"math/rand/v2"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

// ForestConfig configures RandomForest.
type ForestConfig struct {
	Trees    int
	Seed     uint64
	MaxDepth int
	MinLeaf  int
}

// RandomForest averages bootstrap CART trees grown on raw (unscaled) windows.
type RandomForest struct {
	cfg ForestConfig
}

func NewRandomForest(cfg ForestConfig) *RandomForest {
	if cfg.Trees == 0 {
		cfg.Trees = 100
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.MinLeaf == 0 {
		cfg.MinLeaf = 1
	}
	return &RandomForest{cfg: cfg}
}

func (f *RandomForest) Name() string { return models.ComponentForest }

type forestModel []*regressionTree

func (m forestModel) Predict(window []float64) float64 {
	s := 0.0
	for _, t := range m {
		s += t.predict(window)
	}
	return s / float64(len(m))
}

func (f *RandomForest) Fit(ctx context.Context, X [][]float64, y []float64) (Predictor, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, domsvc.NewFitError(f.Name(), "bad training shape: %d rows, %d targets", n, len(y))
	}
	rng := rand.New(rand.NewPCG(f.cfg.Seed, f.cfg.Seed))
	trees := make(forestModel, 0, f.cfg.Trees)
	idx := make([]int, n)
	for t := 0; t < f.cfg.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
		for i := range idx {
			idx[i] = rng.IntN(n)
		}
		trees = append(trees, buildTree(X, y, idx, treeParams{maxDepth: f.cfg.MaxDepth, minLeaf: f.cfg.MinLeaf}))
	}
	return trees, nil
}
