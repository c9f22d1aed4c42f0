package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgcache "FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

const keyPrefix = "analysis"

// AnalysisCache stores finished analyses in a pkg/cache backend.
type AnalysisCache struct {
	backend pkgcache.Service
	ttl     time.Duration
	l       *applogger.Logger
}

func NewAnalysisCache(backend pkgcache.Service, ttl time.Duration, l *applogger.Logger) *AnalysisCache {
	return &AnalysisCache{backend: backend, ttl: ttl, l: l}
}

// Get treats backend errors as misses.
func (c *AnalysisCache) Get(ctx context.Context, key string) (*models.Analysis, bool) {
	var a models.Analysis
	if err := c.backend.Get(ctx, key, &a); err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			c.l.Warn("analysis cache read failed", applogger.String("key", key), applogger.Error(err))
		}
		return nil, false
	}
	return &a, true
}

func (c *AnalysisCache) Set(ctx context.Context, key string, a *models.Analysis) error {
	return c.backend.Set(ctx, key, a, c.ttl)
}

// Key identifies an analysis by symbol, the last input date, the number of
// history rows fitted and the run parameters that change the result.
func Key(symbol string, lastDate time.Time, rows int, cfg models.RunConfig) string {
	params, _ := json.Marshal(struct {
		N, H, W int
		P       models.RiskProfile
		TS, ML  float64
	}{rows, cfg.Horizon, cfg.WindowSize, cfg.RiskProfile, cfg.TSWeight, cfg.MLWeight})
	return pkgcache.Key(keyPrefix, symbol, util.FormatDate(lastDate), pkgcache.Digest(params, 12))
}

var _ domrepo.AnalysisCache = (*AnalysisCache)(nil)
