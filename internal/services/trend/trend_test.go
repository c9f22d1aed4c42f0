package trend

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/pkg/util"
)

func table(closes []float64) models.FeatureTable {
	bars := make(models.PriceSeries, len(closes))
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		if i > 0 {
			day = util.NextBusinessDay(day)
		}
		bars[i] = models.PriceBar{Date: day, Open: c, High: c, Low: c, Close: c}
	}
	return features.Build("TEST", bars)
}

func linear(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func randomWalk(n int, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]float64, n)
	out[0] = 100
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + r.NormFloat64()
	}
	return out
}

func TestKPSSPicksDifferencing(t *testing.T) {
	assert.Equal(t, 1, ndiffs(linear(200), 2))
	assert.Equal(t, 0, ndiffs(flat(200, 5), 2))
	assert.Greater(t, kpssLevel(linear(200)), kpssCritical5)
}

func TestStationarityCheck(t *testing.T) {
	assert.True(t, stationary([]float64{0.5}))
	assert.False(t, stationary([]float64{1.2}))
	assert.True(t, stationary([]float64{0.5, 0.3}))
	assert.False(t, stationary([]float64{0.7, 0.5}))
	assert.True(t, stationary(nil))
}

func TestPsiWeightsRandomWalk(t *testing.T) {
	psi := psiWeights(nil, nil, 1, 4)
	assert.Equal(t, []float64{1, 1, 1, 1}, psi)
	psi = psiWeights([]float64{0.5}, nil, 0, 3)
	assert.InDelta(t, 0.25, psi[2], 1e-12)
}

func TestARIMALinearTrend(t *testing.T) {
	path, err := NewARIMA().Forecast(context.Background(), table(linear(200)), domsvc.ForecastParams{Horizon: 5})
	require.NoError(t, err)
	require.Len(t, path.Points, 5)
	require.True(t, path.HasBand())
	for i, v := range path.Points {
		assert.InDelta(t, 300+float64(i), v, 1e-6)
		assert.LessOrEqual(t, path.Lower[i], v)
		assert.GreaterOrEqual(t, path.Upper[i], v)
	}
}

func TestARIMAFlatSeries(t *testing.T) {
	path, err := NewARIMA().Forecast(context.Background(), table(flat(120, 42)), domsvc.ForecastParams{Horizon: 3})
	require.NoError(t, err)
	for _, v := range path.Points {
		assert.InDelta(t, 42, v, 1e-6)
	}
}

func TestARIMABandWidensWithHorizon(t *testing.T) {
	path, err := NewARIMA().Forecast(context.Background(), table(randomWalk(300, 7)), domsvc.ForecastParams{Horizon: 10})
	require.NoError(t, err)
	prev := 0.0
	for i := range path.Points {
		w := path.Upper[i] - path.Lower[i]
		assert.GreaterOrEqual(t, w, prev)
		prev = w
	}
	assert.Greater(t, prev, 0.0)
}

func TestDecompositionLinearTrend(t *testing.T) {
	path, err := NewDecomposition().Forecast(context.Background(), table(linear(200)), domsvc.ForecastParams{Horizon: 5})
	require.NoError(t, err)
	require.Len(t, path.Points, 5)
	assert.False(t, path.HasBand())
	for i, v := range path.Points {
		assert.InDelta(t, 300+float64(i), v, 1e-3)
	}
}

func TestDecompositionFlatSeries(t *testing.T) {
	path, err := NewDecomposition().Forecast(context.Background(), table(flat(120, 50)), domsvc.ForecastParams{Horizon: 3})
	require.NoError(t, err)
	for _, v := range path.Points {
		assert.InDelta(t, 50, v, 1e-6)
	}
}

func TestDecompositionUsesYearlyTermsOnLongHistory(t *testing.T) {
	path, err := NewDecomposition().Forecast(context.Background(), table(randomWalk(600, 3)), domsvc.ForecastParams{Horizon: 10})
	require.NoError(t, err)
	assert.Len(t, path.Points, 10)
}

func TestTrendForecastersRejectShortHistory(t *testing.T) {
	for _, f := range []domsvc.PriceForecaster{NewARIMA(), NewDecomposition()} {
		_, err := f.Forecast(context.Background(), table(linear(10)), domsvc.ForecastParams{Horizon: 5})
		require.Error(t, err, f.Name())
		assert.True(t, errors.Is(err, domsvc.ErrInsufficientHistory))
		var ih *domsvc.InsufficientHistoryError
		require.True(t, errors.As(err, &ih))
		assert.Equal(t, MinHistory, ih.Need)
		assert.Equal(t, 10, ih.Have)
	}
}

func TestTrendForecastersHonourCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewARIMA().Forecast(ctx, table(linear(100)), domsvc.ForecastParams{Horizon: 5})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestARIMAStopsAtDeadline(t *testing.T) {
	tbl := table(randomWalk(20000, 9))
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := NewARIMA().Forecast(ctx, tbl, domsvc.ForecastParams{Horizon: 5})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
