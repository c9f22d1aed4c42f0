package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/usecase"
)

type fakeService struct {
	analysis *models.Analysis
	err      error
	reqs     []usecase.AnalysisRequest
	compared bool
	testDays int
}

func (f *fakeService) Analyze(_ context.Context, req usecase.AnalysisRequest) (*models.Analysis, error) {
	f.reqs = append(f.reqs, req)
	return f.analysis, f.err
}

func (f *fakeService) Compare(_ context.Context, req usecase.AnalysisRequest) (*usecase.ProfileComparison, error) {
	f.reqs = append(f.reqs, req)
	f.compared = true
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.ProfileComparison{Symbol: req.Symbol, Forecast: f.analysis.Forecast}, nil
}

func (f *fakeService) Backtest(_ context.Context, req usecase.AnalysisRequest, testDays int) (*models.BacktestResult, error) {
	f.reqs = append(f.reqs, req)
	f.testDays = testDays
	if f.err != nil {
		return nil, f.err
	}
	return &models.BacktestResult{Symbol: req.Symbol, TestDays: testDays, RMSE: 1.5}, nil
}

func sampleAnalysis() *models.Analysis {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return &models.Analysis{
		Symbol:      "AAPL",
		Profile:     models.ProfileAggressive,
		GeneratedAt: day,
		Forecast: &models.ForecastTable{
			Symbol: "AAPL",
			Rows: []models.ForecastRow{
				{Date: day, TrendA: models.Some(101.123456), FinalEnsemble: 101.5},
				{Date: day.AddDate(0, 0, 1), FinalEnsemble: 102},
			},
			Degradations: []models.Degradation{{Component: models.ComponentSVR, Reason: "fit failed"}},
		},
		Signals: []models.Signal{
			{Date: day, Decision: models.DecisionBuy, Score: 2, Rationale: []string{"strong uptrend"}},
			{Date: day.AddDate(0, 0, 1), Decision: models.DecisionHold},
		},
	}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(svc Service, opts ...HandlerOption) *echo.Echo {
	e := echo.New()
	NewForecastHandler(nil, svc, models.NewRunConfig(), opts...).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestForecastEndpoint(t *testing.T) {
	svc := &fakeService{analysis: sampleAnalysis()}
	e := newTestServer(svc)

	rec, env := do(t, e, http.MethodGet, "/api/forecast?symbol=AAPL&n_future=2&profile=agresif", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=60", rec.Header().Get(echo.HeaderCacheControl))

	require.Len(t, svc.reqs, 1)
	req := svc.reqs[0]
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, 750, req.Lookback)
	assert.Equal(t, 2, req.Config.Horizon)
	assert.Equal(t, models.ProfileAggressive, req.Config.RiskProfile)
	assert.Equal(t, 0.8, req.Config.TSWeight)

	var res struct {
		Symbol  string          `json:"symbol"`
		NextDay *models.NextDay `json:"next_day"`
		Records []struct {
			ARIMA    *string `json:"arima"`
			SVR      *string `json:"svr"`
			Decision string  `json:"decision"`
		} `json:"records"`
		Degradations []models.Degradation `json:"degradations"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "AAPL", res.Symbol)
	require.NotNil(t, res.NextDay)
	assert.Equal(t, 101.5, res.NextDay.PredictedPrice)
	require.Len(t, res.Records, 2)
	require.NotNil(t, res.Records[0].ARIMA)
	assert.Equal(t, "101.123456", *res.Records[0].ARIMA)
	assert.Nil(t, res.Records[0].SVR)
	assert.Equal(t, "BUY", res.Records[0].Decision)
	assert.Len(t, res.Degradations, 1)
}

func TestForecastValidation(t *testing.T) {
	svc := &fakeService{analysis: sampleAnalysis()}
	e := newTestServer(svc)

	rec, _ := do(t, e, http.MethodGet, "/api/forecast?n_future=2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "symbol is required")

	rec, _ = do(t, e, http.MethodGet, "/api/forecast?symbol=AAPL&n_future=1000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/forecast?symbol=AAPL&profile=yolo", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.reqs)
}

func TestForecastErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{&domsvc.ConfigError{Field: "ts_weight", Reason: "weights must sum to 1"}, http.StatusBadRequest, "ERR_INVALID_CONFIGURATION"},
		{&domsvc.InsufficientHistoryError{Component: "features", Need: 60, Have: 20}, http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_HISTORY"},
		{fmt.Errorf("%w: AAPL", usecase.ErrNoPriceData), http.StatusNotFound, "ERR_NOT_FOUND"},
		{domsvc.ErrNoForecasters, http.StatusUnprocessableEntity, "ERR_NO_FORECASTERS"},
		{fmt.Errorf("forecast: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "ERR_TIMEOUT"},
		{errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			appErr := toAppError(tc.err)
			assert.Equal(t, tc.status, appErr.Status)
			assert.Equal(t, tc.code, appErr.Code)
			assert.ErrorIs(t, appErr, tc.err)
		})
	}

	e := newTestServer(&fakeService{err: &domsvc.InsufficientHistoryError{Component: "features", Need: 60, Have: 20}})
	rec, env := do(t, e, http.MethodGet, "/api/forecast?symbol=AAPL", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.Status)
	assert.Contains(t, string(env.Data), `"need":60`)
}

func TestSignalsEndpoint(t *testing.T) {
	svc := &fakeService{analysis: sampleAnalysis()}
	e := newTestServer(svc)

	rec, env := do(t, e, http.MethodGet, "/api/signals?symbol=AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, svc.compared)
	assert.Contains(t, string(env.Data), `"decision":"BUY"`)

	rec, _ = do(t, e, http.MethodGet, "/api/signals?symbol=AAPL&compare=true&window=20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.compared)
	assert.Equal(t, 20, svc.reqs[1].Config.WindowSize)
}

func TestBacktestEndpoint(t *testing.T) {
	svc := &fakeService{analysis: sampleAnalysis()}
	e := newTestServer(svc)

	rec, env := do(t, e, http.MethodGet, "/api/backtest?symbol=AAPL&test_days=15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15, svc.testDays)
	assert.Equal(t, 15, svc.reqs[0].Config.BacktestDays)

	var res models.BacktestResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1.5, res.RMSE)

	rec, _ = do(t, e, http.MethodGet, "/api/backtest?symbol=AAPL&test_days=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRiskProfileEndpoints(t *testing.T) {
	e := newTestServer(&fakeService{})

	rec, env := do(t, e, http.MethodGet, "/api/risk-profile/questions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var qs []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &qs))
	assert.Len(t, qs, 4)

	rec, env = do(t, e, http.MethodPost, "/api/risk-profile", `{"answers":[3,3,3,3]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res RiskProfileResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, models.ProfileAggressive, res.Profile)
	assert.Equal(t, 38, res.Score)

	rec, _ = do(t, e, http.MethodPost, "/api/risk-profile", `{"answers":[1,4,1,1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/risk-profile", `{"answers":[1,1]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newTestServer(&fakeService{},
		WithHealthCheck("clickhouse", func(context.Context) error { return nil }),
	)
	rec, env := do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clickhouse":"ok"}`, string(env.Data))

	e = newTestServer(&fakeService{},
		WithHealthCheck("clickhouse", func(context.Context) error { return nil }),
		WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
	)
	rec, env = do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"clickhouse":"ok","redis":"connection refused"}`, string(env.Data))
}
