package volatility

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domsvc "FinCast/internal/domain/service"
)

// simulateGARCH draws returns from omega=0.1, alpha=0.1, beta=0.8 (unconditional variance 1).
func simulateGARCH(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b9))
	out := make([]float64, n)
	s2 := 1.0
	for i := range out {
		if i > 0 {
			s2 = 0.1 + 0.1*out[i-1]*out[i-1] + 0.8*s2
		}
		out[i] = math.Sqrt(s2) * rng.NormFloat64()
	}
	return out
}

func TestGARCHConvergesToUnconditionalLevel(t *testing.T) {
	path, err := NewGARCH().Forecast(context.Background(), simulateGARCH(2000, 11), 200)
	require.NoError(t, err)
	require.Len(t, path, 200)
	for _, v := range path {
		assert.Greater(t, v, 0.0)
	}
	assert.InDelta(t, 1.0, path[199], 0.5)
}

func TestEGARCHPathPositive(t *testing.T) {
	path, err := NewEGARCH().Forecast(context.Background(), simulateGARCH(1500, 5), 30)
	require.NoError(t, err)
	require.Len(t, path, 30)
	for _, v := range path {
		assert.Greater(t, v, 0.0)
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestModelsStopAtDeadline(t *testing.T) {
	r := simulateGARCH(50000, 3)
	for _, m := range []Model{NewGARCH(), NewEGARCH()} {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		start := time.Now()
		_, err := m.Forecast(ctx, r, 5)
		cancel()
		assert.ErrorIs(t, err, context.DeadlineExceeded, m.Name())
		assert.Less(t, time.Since(start), 2*time.Second, m.Name())
	}
}

func TestModelsRejectDegenerateReturns(t *testing.T) {
	zeros := make([]float64, 200)
	for _, m := range []Model{NewGARCH(), NewEGARCH()} {
		_, err := m.Forecast(context.Background(), zeros, 5)
		assert.ErrorIs(t, err, domsvc.ErrFitFailure, m.Name())
		_, err = m.Forecast(context.Background(), []float64{1, -1}, 5)
		assert.ErrorIs(t, err, domsvc.ErrFitFailure, m.Name())
	}
}

type fixedModel struct {
	name string
	v    float64
	err  error
}

func (m fixedModel) Name() string { return m.name }

func (m fixedModel) Forecast(_ context.Context, _ []float64, h int) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, h)
	for i := range out {
		out[i] = m.v
	}
	return out, nil
}

func TestForecasterAveragesAvailablePaths(t *testing.T) {
	f := NewForecaster(WithModels(fixedModel{name: "a", v: 1}, fixedModel{name: "b", v: 3}))
	path, err := f.Forecast(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2}, path)

	f = NewForecaster(WithModels(fixedModel{name: "a", v: 1}, fixedModel{name: "b", err: errors.New("boom")}))
	path, err = f.Forecast(context.Background(), nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, path)
}

func TestForecasterUnavailableWhenAllFail(t *testing.T) {
	_, err := NewForecaster().Forecast(context.Background(), make([]float64, 100), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domsvc.ErrVolatilityUnavailable)
	assert.ErrorIs(t, err, domsvc.ErrFitFailure)
}
