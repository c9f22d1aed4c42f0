package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/risk"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"
)

// Service is the analysis surface the HTTP handler needs.
type Service interface {
	Analyze(ctx context.Context, req usecase.AnalysisRequest) (*models.Analysis, error)
	Compare(ctx context.Context, req usecase.AnalysisRequest) (*usecase.ProfileComparison, error)
	Backtest(ctx context.Context, req usecase.AnalysisRequest, testDays int) (*models.BacktestResult, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// ForecastHandler serves forecasts, signals, backtests and the risk questionnaire.
type ForecastHandler struct {
	logger  *xlogger.Logger
	svc     Service
	base    models.RunConfig
	timeout time.Duration
	checks  map[string]HealthCheck
}

type HandlerOption func(*ForecastHandler)

// WithRequestTimeout bounds every analysis request.
func WithRequestTimeout(d time.Duration) HandlerOption {
	return func(h *ForecastHandler) { h.timeout = d }
}

// WithHealthCheck adds a named check to /health.
func WithHealthCheck(name string, fn HealthCheck) HandlerOption {
	return func(h *ForecastHandler) {
		if fn != nil {
			h.checks[name] = fn
		}
	}
}

func NewForecastHandler(logger *xlogger.Logger, svc Service, base models.RunConfig, opts ...HandlerOption) *ForecastHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	h := &ForecastHandler{logger: logger, svc: svc, base: base, checks: map[string]HealthCheck{}}
	for _, o := range opts {
		o(h)
	}
	return h
}

var _ xhttp.Handler = (*ForecastHandler)(nil)

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.GET("/signals", h.Signals)
	g.GET("/backtest", h.Backtest)
	g.GET("/risk-profile/questions", h.Questions)
	g.POST("/risk-profile", h.RiskProfile)
}

// ForecastResponse is the body of /api/forecast.
type ForecastResponse struct {
	Symbol       string               `json:"symbol"`
	Profile      models.RiskProfile   `json:"risk_profile"`
	GeneratedAt  time.Time            `json:"generated_at"`
	NextDay      *models.NextDay      `json:"next_day,omitempty"`
	Records      []models.Record      `json:"records"`
	Degradations []models.Degradation `json:"degradations,omitempty"`
}

// NewForecastResponse flattens an analysis for clients.
func NewForecastResponse(a *models.Analysis) ForecastResponse {
	res := ForecastResponse{
		Symbol:      a.Symbol,
		Profile:     a.Profile,
		GeneratedAt: a.GeneratedAt,
		Records:     a.Records(),
	}
	if nd, ok := a.NextDay(); ok {
		res.NextDay = &nd
	}
	if a.Forecast != nil {
		res.Degradations = a.Forecast.Degradations
	}
	return res
}

func (h *ForecastHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	areq, err := h.analysisRequest(*req)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	ctx, cancel := h.context(c)
	defer cancel()

	a, err := h.svc.Analyze(ctx, areq)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, NewForecastResponse(a))
}

func (h *ForecastHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	areq, err := h.analysisRequest(req.ForecastRequest)
	if err != nil {
		return h.fail(c, "signals", err)
	}
	ctx, cancel := h.context(c)
	defer cancel()

	if req.Compare {
		cmp, err := h.svc.Compare(ctx, areq)
		if err != nil {
			return h.fail(c, "signals", err)
		}
		return xhttp.SuccessResponse(c, cmp)
	}
	a, err := h.svc.Analyze(ctx, areq)
	if err != nil {
		return h.fail(c, "signals", err)
	}
	return xhttp.SuccessResponse(c, map[string]any{
		"symbol":       a.Symbol,
		"risk_profile": a.Profile,
		"signals":      a.Signals,
	})
}

func (h *ForecastHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg := h.base
	cfg.WindowSize = req.Window
	cfg.BacktestDays = req.TestDays
	ctx, cancel := h.context(c)
	defer cancel()

	res, err := h.svc.Backtest(ctx, usecase.AnalysisRequest{Symbol: req.Symbol, Lookback: req.Lookback, Config: cfg}, req.TestDays)
	if err != nil {
		return h.fail(c, "backtest", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastHandler) Questions(c echo.Context) error {
	return xhttp.SuccessResponse(c, risk.Questionnaire)
}

// RiskProfileResponse is the body of POST /api/risk-profile.
type RiskProfileResponse struct {
	Profile    models.RiskProfile `json:"risk_profile"`
	Score      int                `json:"score"`
	Thresholds models.Thresholds  `json:"thresholds"`
}

func (h *ForecastHandler) RiskProfile(c echo.Context) error {
	req := &models.RiskProfileRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	p, score, err := risk.Assess(req.Answers)
	if err != nil {
		return h.fail(c, "risk_profile", err)
	}
	return xhttp.SuccessResponse(c, RiskProfileResponse{Profile: p, Score: score, Thresholds: p.Thresholds()})
}

// Health runs every registered check; any failure turns the response into a 503.
func (h *ForecastHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			h.logger.Warn("health check failed", xlogger.String("check", name), xlogger.Error(err))
			continue
		}
		checks[name] = "ok"
	}
	return xhttp.DataResponse(c, status, checks)
}

func (h *ForecastHandler) analysisRequest(req models.ForecastRequest) (usecase.AnalysisRequest, error) {
	p, err := models.ParseRiskProfile(req.Profile)
	if err != nil {
		return usecase.AnalysisRequest{}, &domsvc.ConfigError{Field: "profile", Reason: err.Error()}
	}
	cfg := h.base
	cfg.Horizon = req.Horizon
	cfg.WindowSize = req.Window
	cfg.RiskProfile = p
	cfg.TSWeight = req.TSWeight
	cfg.MLWeight = req.MLWeight
	return usecase.AnalysisRequest{Symbol: req.Symbol, Lookback: req.Lookback, Config: cfg}, nil
}

func (h *ForecastHandler) context(c echo.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.Request().Context(), h.timeout)
	}
	return context.WithCancel(c.Request().Context())
}

func (h *ForecastHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var cfgErr *domsvc.ConfigError
	var histErr *domsvc.InsufficientHistoryError
	switch {
	case errors.As(err, &cfgErr):
		return xhttp.NewAppError("ERR_INVALID_CONFIGURATION", cfgErr.Field, cfgErr.Reason, http.StatusBadRequest).WithError(err)
	case errors.Is(err, domsvc.ErrInvalidConfiguration):
		return xhttp.NewAppError("ERR_INVALID_CONFIGURATION", "", err.Error(), http.StatusBadRequest).WithError(err)
	case errors.As(err, &histErr):
		return xhttp.UnprocessableError("ERR_INSUFFICIENT_HISTORY", "lookback", err.Error()).
			WithParam("need", histErr.Need).
			WithParam("have", histErr.Have).
			WithError(err)
	case errors.Is(err, usecase.ErrNoPriceData):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, domsvc.ErrNoForecasters):
		return xhttp.UnprocessableError("ERR_NO_FORECASTERS", "", err.Error()).WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("analysis timed out").WithError(err)
	default:
		return xhttp.InternalError("analysis failed").WithError(err)
	}
}
