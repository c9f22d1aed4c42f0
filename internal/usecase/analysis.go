package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	icache "FinCast/internal/service/cache"
	"FinCast/internal/services/features"
	"FinCast/internal/services/signal"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
)

// ErrNoPriceData is returned when the price store has no bars for a symbol.
var ErrNoPriceData = errors.New("no price data")

const defaultLookback = 750

// AnalysisRequest asks for one symbol's analysis. Lookback <= 0 uses the
// service default.
type AnalysisRequest struct {
	Symbol   string
	Lookback int
	Config   models.RunConfig
}

// ProfileComparison holds one forecast with the signals of every profile.
type ProfileComparison struct {
	Symbol   string                                 `json:"symbol"`
	Forecast *models.ForecastTable                  `json:"forecast"`
	Signals  map[models.RiskProfile][]models.Signal `json:"signals"`
}

type AnalysisOption func(*AnalysisService)

func WithAnalysisStore(s domrepo.AnalysisStore) AnalysisOption {
	return func(a *AnalysisService) { a.store = s }
}

func WithSignalPublisher(p domrepo.SignalPublisher) AnalysisOption {
	return func(a *AnalysisService) { a.publisher = p }
}

func WithAnalysisCache(c domrepo.AnalysisCache) AnalysisOption {
	return func(a *AnalysisService) { a.cache = c }
}

func WithDefaultLookback(n int) AnalysisOption {
	return func(a *AnalysisService) {
		if n > 0 {
			a.lookback = n
		}
	}
}

func WithAnalysisLogger(l *applogger.Logger) AnalysisOption {
	return func(a *AnalysisService) {
		if l != nil {
			a.l = l
		}
	}
}

func WithAnalysisMetrics(m domrepo.Metrics) AnalysisOption {
	return func(a *AnalysisService) {
		if m != nil {
			a.m = m
		}
	}
}

// AnalysisService runs the full pipeline for a symbol: load history, build
// features, forecast, derive signals, then cache, persist and publish.
// Cache, store and publisher are optional.
type AnalysisService struct {
	prices     domrepo.PriceStore
	forecaster TableForecaster
	backtest   *BacktestUseCase

	store     domrepo.AnalysisStore
	publisher domrepo.SignalPublisher
	cache     domrepo.AnalysisCache

	lookback int
	l        *applogger.Logger
	m        domrepo.Metrics
}

func NewAnalysisService(prices domrepo.PriceStore, f TableForecaster, opts ...AnalysisOption) *AnalysisService {
	s := &AnalysisService{
		prices:     prices,
		forecaster: f,
		lookback:   defaultLookback,
		l:          applogger.Nop(),
		m:          metrics.Nop{},
	}
	for _, o := range opts {
		o(s)
	}
	s.backtest = NewBacktestUseCase(f, s.l, s.m)
	return s
}

// LoadTable reads the latest bars and builds the feature table. Repairs made
// during normalization are logged at warn level.
func (s *AnalysisService) LoadTable(ctx context.Context, symbol string, lookback int) (models.FeatureTable, error) {
	if lookback <= 0 {
		lookback = s.lookback
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	bars, err := s.prices.GetLatestNBars(ctx, symbol, lookback)
	if err != nil {
		return models.FeatureTable{}, fmt.Errorf("load %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return models.FeatureTable{}, fmt.Errorf("%w: %s", ErrNoPriceData, symbol)
	}
	table, rep := features.Prepare(symbol, bars)
	if !rep.Clean() {
		s.l.Warn("price history repaired",
			applogger.String("symbol", symbol),
			applogger.Int("duplicates", rep.Duplicates),
			applogger.Bool("unsorted", rep.Unsorted),
			applogger.Int("dropped", rep.Dropped),
			applogger.Int("filled", rep.Filled),
		)
	}
	return table, nil
}

// Analyze returns the analysis for req, served from cache when the inputs are
// unchanged. Persist and publish failures are logged and do not fail the call.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*models.Analysis, error) {
	start := time.Now()
	defer func() { s.m.RecordLatency("analyze", time.Since(start).Seconds()) }()

	table, err := s.LoadTable(ctx, req.Symbol, req.Lookback)
	if err != nil {
		s.m.RecordError("load")
		return nil, err
	}

	key := icache.Key(table.Symbol, table.LastDate(), table.Len(), req.Config)
	if s.cache != nil {
		if a, ok := s.cache.Get(ctx, key); ok {
			s.l.Debug("analysis cache hit", applogger.String("key", key))
			return a, nil
		}
	}

	a, err := s.AnalyzeTable(ctx, table, req.Config)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, a); err != nil {
			s.l.Warn("analysis cache write failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	s.persist(ctx, a)
	return a, nil
}

// AnalyzeTable forecasts an already built table and derives its signals.
func (s *AnalysisService) AnalyzeTable(ctx context.Context, table models.FeatureTable, cfg models.RunConfig) (*models.Analysis, error) {
	ft, err := s.forecaster.Forecast(ctx, table, cfg)
	if err != nil {
		s.m.RecordError(errorKind(err))
		return nil, err
	}
	sigs := signal.Generate(ft.Rows, table.LastClose(), signal.ContextFrom(table), cfg.RiskProfile.Thresholds())
	a := &models.Analysis{
		Symbol:      table.Symbol,
		Profile:     cfg.RiskProfile,
		GeneratedAt: ft.GeneratedAt,
		Forecast:    ft,
		Signals:     sigs,
	}
	if nd, ok := a.NextDay(); ok {
		s.l.Info("analysis finished",
			applogger.String("symbol", a.Symbol),
			applogger.String("profile", string(a.Profile)),
			applogger.Float64("next_price", nd.PredictedPrice),
			applogger.String("decision", string(nd.Decision)),
			applogger.Bool("degraded", ft.Degraded()),
		)
	}
	return a, nil
}

func (s *AnalysisService) persist(ctx context.Context, a *models.Analysis) {
	if s.store != nil {
		if err := s.store.SaveAnalysis(ctx, a); err != nil {
			s.m.RecordError("persist")
			s.l.Warn("analysis not persisted", applogger.String("symbol", a.Symbol), applogger.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishAnalysis(ctx, a); err != nil {
			s.m.RecordError("publish")
			s.l.Warn("analysis not published", applogger.String("symbol", a.Symbol), applogger.Error(err))
		}
	}
}

// Compare forecasts once and scores the same rows under every risk profile.
func (s *AnalysisService) Compare(ctx context.Context, req AnalysisRequest) (*ProfileComparison, error) {
	table, err := s.LoadTable(ctx, req.Symbol, req.Lookback)
	if err != nil {
		return nil, err
	}
	ft, err := s.forecaster.Forecast(ctx, table, req.Config)
	if err != nil {
		s.m.RecordError(errorKind(err))
		return nil, err
	}
	return &ProfileComparison{
		Symbol:   table.Symbol,
		Forecast: ft,
		Signals:  signal.CompareProfiles(ft.Rows, table.LastClose(), signal.ContextFrom(table)),
	}, nil
}

// Backtest evaluates the ensemble on the last testDays of the symbol's history.
func (s *AnalysisService) Backtest(ctx context.Context, req AnalysisRequest, testDays int) (*models.BacktestResult, error) {
	start := time.Now()
	defer func() { s.m.RecordLatency("backtest", time.Since(start).Seconds()) }()

	table, err := s.LoadTable(ctx, req.Symbol, req.Lookback)
	if err != nil {
		s.m.RecordError("load")
		return nil, err
	}
	res, err := s.backtest.Evaluate(ctx, table, testDays, req.Config)
	if err != nil {
		s.m.RecordError(errorKind(err))
		return nil, err
	}
	return res, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domsvc.ErrInvalidConfiguration):
		return "invalid_configuration"
	case errors.Is(err, domsvc.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, domsvc.ErrNoForecasters):
		return "no_forecasters"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal"
	}
}
