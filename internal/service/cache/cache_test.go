package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	pkgcache "FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"
)

func TestAnalysisCacheRoundTrip(t *testing.T) {
	backend := pkgcache.NewMemoryCache()
	defer backend.Close()
	c := NewAnalysisCache(backend, time.Hour, applogger.Nop())
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := &models.Analysis{
		Symbol:  "THYAO",
		Profile: models.ProfileModerate,
		Forecast: &models.ForecastTable{
			Symbol: "THYAO",
			Rows:   []models.ForecastRow{{Date: day, TrendA: models.Some(10), FinalEnsemble: 10}},
		},
		Signals: []models.Signal{{Date: day, Decision: models.DecisionHold, Rationale: []string{"sideways"}}},
	}
	key := Key("THYAO", day, 300, models.NewRunConfig())

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
	require.NoError(t, c.Set(ctx, key, a))

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "THYAO", got.Symbol)
	assert.Equal(t, models.Some(10), got.Forecast.Rows[0].TrendA)
	assert.False(t, got.Forecast.Rows[0].TSEnsemble.Valid)
	assert.Equal(t, models.DecisionHold, got.Signals[0].Decision)
}

func TestKeyDependsOnRunParameters(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cfg := models.NewRunConfig()
	k1 := Key("X", day, 300, cfg)
	assert.Contains(t, k1, "analysis:X:2024-03-01:")
	assert.Equal(t, k1, Key("X", day, 300, cfg))
	assert.NotEqual(t, k1, Key("X", day, 100, cfg))

	cfg.Horizon = 5
	assert.NotEqual(t, k1, Key("X", day, 300, cfg))
	assert.NotEqual(t, k1, Key("X", day.AddDate(0, 0, 1), 300, models.NewRunConfig()))
}
