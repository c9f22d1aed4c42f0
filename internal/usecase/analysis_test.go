package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/service/ratelimit"
	applogger "FinCast/pkg/logger"
)

type fakePrices struct {
	bars models.PriceSeries
	err  error
	seen int
}

func (f *fakePrices) GetDailyBars(context.Context, string, time.Time, time.Time) (models.PriceSeries, error) {
	return f.bars, f.err
}

func (f *fakePrices) GetLatestNBars(_ context.Context, _ string, n int) (models.PriceSeries, error) {
	f.seen = n
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.bars) {
		return f.bars[len(f.bars)-n:], nil
	}
	return f.bars, nil
}

type mapCache struct {
	m map[string]*models.Analysis
}

func (c *mapCache) Get(_ context.Context, key string) (*models.Analysis, bool) {
	a, ok := c.m[key]
	return a, ok
}

func (c *mapCache) Set(_ context.Context, key string, a *models.Analysis) error {
	c.m[key] = a
	return nil
}

type fakeStore struct {
	err   error
	saved []*models.Analysis
}

func (s *fakeStore) Init(context.Context) error   { return nil }
func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) SaveAnalysis(_ context.Context, a *models.Analysis) error {
	s.saved = append(s.saved, a)
	return s.err
}

type fakePublisher struct{ published []string }

func (p *fakePublisher) PublishAnalysis(_ context.Context, a *models.Analysis) error {
	p.published = append(p.published, a.Symbol)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type countingForecaster struct {
	inner TableForecaster
	calls int
}

func (c *countingForecaster) Forecast(ctx context.Context, t models.FeatureTable, cfg models.RunConfig) (*models.ForecastTable, error) {
	c.calls++
	return c.inner.Forecast(ctx, t, cfg)
}

type recordingMetrics struct {
	mu     sync.Mutex
	errors []string
}

func (m *recordingMetrics) ObserveForecaster(string, float64, error)      {}
func (m *recordingMetrics) RecordDegradation(string)                      {}
func (m *recordingMetrics) RecordLatency(string, float64)                 {}
func (m *recordingMetrics) RecordBacktest(string, *models.BacktestResult) {}
func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func analysisConfig() models.RunConfig {
	cfg := models.NewRunConfig()
	cfg.Horizon = 5
	cfg.Parallel = false
	return cfg
}

func upForecaster() *countingForecaster {
	return &countingForecaster{inner: stubCombiner(
		[]*stubForecaster{{name: "arima", min: 60, value: 230}},
		[]*stubForecaster{{name: "svr", min: 60, value: 230}},
		stubVol{value: 0.5},
	)}
}

func TestAnalyzePipeline(t *testing.T) {
	prices := &fakePrices{bars: series(120, linear)}
	f := upForecaster()
	cache := &mapCache{m: map[string]*models.Analysis{}}
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewAnalysisService(prices, f,
		WithAnalysisCache(cache),
		WithAnalysisStore(store),
		WithSignalPublisher(pub),
		WithDefaultLookback(100),
	)

	a, err := svc.Analyze(context.Background(), AnalysisRequest{Symbol: " aapl ", Config: analysisConfig()})
	require.NoError(t, err)
	assert.Equal(t, 100, prices.seen)
	assert.Equal(t, "AAPL", a.Symbol)
	assert.Equal(t, models.ProfileModerate, a.Profile)
	require.Len(t, a.Signals, 5)
	require.Len(t, a.Forecast.Rows, 5)
	assert.Equal(t, 230.0, a.Forecast.Rows[0].FinalEnsemble)
	assert.Equal(t, models.DecisionBuy, a.Signals[0].Decision)

	assert.Len(t, store.saved, 1)
	assert.Equal(t, []string{"AAPL"}, pub.published)
	assert.Len(t, cache.m, 1)

	again, err := svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Config: analysisConfig()})
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Equal(t, 1, f.calls)
	assert.Len(t, store.saved, 1)

	other := analysisConfig()
	other.RiskProfile = models.ProfileConservative
	_, err = svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Config: other})
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestAnalyzeCacheSeparatesLookbacks(t *testing.T) {
	prices := &fakePrices{bars: series(500, linear)}
	f := upForecaster()
	svc := NewAnalysisService(prices, f, WithAnalysisCache(&mapCache{m: map[string]*models.Analysis{}}))

	short, err := svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Lookback: 100, Config: analysisConfig()})
	require.NoError(t, err)
	long, err := svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Lookback: 400, Config: analysisConfig()})
	require.NoError(t, err)
	assert.Equal(t, 400, prices.seen)
	assert.Equal(t, 2, f.calls)
	assert.NotSame(t, short, long)

	_, err = svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Lookback: 400, Config: analysisConfig()})
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestAnalyzePersistFailureIsNotFatal(t *testing.T) {
	m := &recordingMetrics{}
	svc := NewAnalysisService(&fakePrices{bars: series(120, linear)}, upForecaster(),
		WithAnalysisStore(&fakeStore{err: errors.New("ch down")}),
		WithAnalysisMetrics(m),
	)
	a, err := svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Config: analysisConfig()})
	require.NoError(t, err)
	assert.NotNil(t, a)
	assert.Equal(t, []string{"persist"}, m.errors)
}

func TestAnalyzeErrors(t *testing.T) {
	m := &recordingMetrics{}
	svc := NewAnalysisService(&fakePrices{}, upForecaster(), WithAnalysisMetrics(m))
	_, err := svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Config: analysisConfig()})
	assert.ErrorIs(t, err, ErrNoPriceData)

	svc = NewAnalysisService(&fakePrices{err: errors.New("timeout")}, upForecaster())
	_, err = svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Config: analysisConfig()})
	assert.ErrorContains(t, err, "load AAPL: timeout")

	svc = NewAnalysisService(&fakePrices{bars: series(20, linear)}, upForecaster(), WithAnalysisMetrics(m))
	_, err = svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Config: analysisConfig()})
	var ih *domsvc.InsufficientHistoryError
	require.ErrorAs(t, err, &ih)

	bad := analysisConfig()
	bad.TSWeight = 0.5
	_, err = svc.Analyze(context.Background(), AnalysisRequest{Symbol: "AAPL", Config: bad})
	assert.ErrorIs(t, err, domsvc.ErrInvalidConfiguration)

	assert.Equal(t, []string{"load", "insufficient_history", "invalid_configuration"}, m.errors)
}

func TestCompareProfiles(t *testing.T) {
	svc := NewAnalysisService(&fakePrices{bars: series(120, linear)}, upForecaster())
	cmp, err := svc.Compare(context.Background(), AnalysisRequest{Symbol: "AAPL", Config: analysisConfig()})
	require.NoError(t, err)
	require.Len(t, cmp.Signals, 3)
	for _, p := range models.Profiles {
		assert.Len(t, cmp.Signals[p], 5)
	}
	assert.Len(t, cmp.Forecast.Rows, 5)
}

func TestAnalysisBacktest(t *testing.T) {
	svc := NewAnalysisService(&fakePrices{bars: series(120, linear)}, upForecaster())
	res, err := svc.Backtest(context.Background(), AnalysisRequest{Symbol: "AAPL", Config: analysisConfig()}, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, res.TestDays)
	assert.Len(t, res.Predicted, 10)
	assert.Equal(t, 210.0, res.Actual[0])
}

type recordingAnalyzer struct {
	reqs []AnalysisRequest
	err  error
}

func (r *recordingAnalyzer) Analyze(_ context.Context, req AnalysisRequest) (*models.Analysis, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	return &models.Analysis{Symbol: req.Symbol, Profile: req.Config.RiskProfile}, nil
}

func TestForecastRequestHandler(t *testing.T) {
	an := &recordingAnalyzer{}
	h := NewForecastRequestHandler("", an, analysisConfig(), ratelimit.New(100, 10), nil, nil)
	assert.Equal(t, RequestsTopic, h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"THYAO.IS","n_future":3,"profile":"agresif"}`)))
	require.Len(t, an.reqs, 1)
	req := an.reqs[0]
	assert.Equal(t, "THYAO.IS", req.Symbol)
	assert.Equal(t, 750, req.Lookback)
	assert.Equal(t, 3, req.Config.Horizon)
	assert.Equal(t, models.ProfileAggressive, req.Config.RiskProfile)
	assert.Equal(t, 30, req.Config.WindowSize)

	require.NoError(t, h.Handle(context.Background(), []byte(`{"symbol":"AAPL"}`)))
	assert.Equal(t, 10, an.reqs[1].Config.Horizon)
	assert.Equal(t, models.ProfileModerate, an.reqs[1].Config.RiskProfile)
}

func TestForecastRequestHandlerRejects(t *testing.T) {
	an := &recordingAnalyzer{}
	h := NewForecastRequestHandler("jobs", an, analysisConfig(), nil, nil, nil)

	assert.ErrorContains(t, h.Handle(context.Background(), []byte(`{`)), "decode forecast job")
	assert.ErrorContains(t, h.Handle(context.Background(), []byte(`{"n_future":3}`)), "invalid forecast job")
	assert.ErrorContains(t, h.Handle(context.Background(), []byte(`{"symbol":"A","profile":"yolo"}`)), "unknown risk profile")
	assert.Empty(t, an.reqs)

	an.err = errors.New("boom")
	assert.ErrorContains(t, h.Handle(context.Background(), []byte(`{"symbol":"A"}`)), "boom")
}

func TestJobLogFields(t *testing.T) {
	kv := func(fs []applogger.Field) map[string]any {
		out := map[string]any{}
		for _, f := range fs {
			k, v := f.GetKeyValue()
			out[k] = v
		}
		return out
	}
	assert.Equal(t, map[string]any{"symbol": "THYAO.IS", "n_future": 3}, kv(JobLogFields([]byte(`{"symbol":" thyao.is ","n_future":3}`))))
	assert.Equal(t, map[string]any{"symbol": "AAPL"}, kv(JobLogFields([]byte(`{"symbol":"AAPL"}`))))
	assert.Nil(t, JobLogFields([]byte(`{`)))
	assert.Nil(t, JobLogFields([]byte(`{"n_future":3}`)))
}
