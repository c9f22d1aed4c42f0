package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/service/ratelimit"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
)

// RequestsTopic carries ForecastJob messages.
const RequestsTopic = "fincast.requests"

// Analyzer is the part of AnalysisService the request handler drives.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*models.Analysis, error)
}

// ForecastRequestHandler consumes forecast jobs from Kafka and runs an
// analysis for each. Jobs for the same symbol are throttled by the limiter.
type ForecastRequestHandler struct {
	topic    string
	analyzer Analyzer
	base     models.RunConfig
	limiter  *ratelimit.Limiter
	validate *validator.Validate
	l        *applogger.Logger
	m        domrepo.Metrics
}

func NewForecastRequestHandler(topic string, a Analyzer, base models.RunConfig, limiter *ratelimit.Limiter, l *applogger.Logger, m domrepo.Metrics) *ForecastRequestHandler {
	if topic == "" {
		topic = RequestsTopic
	}
	if l == nil {
		l = applogger.Nop()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &ForecastRequestHandler{
		topic:    topic,
		analyzer: a,
		base:     base,
		limiter:  limiter,
		validate: validator.New(),
		l:        l,
		m:        m,
	}
}

func (h *ForecastRequestHandler) Topic() string { return h.topic }

// Handle decodes one job. Malformed jobs return an error so the consumer can
// route them to the dead letter topic.
func (h *ForecastRequestHandler) Handle(ctx context.Context, b []byte) error {
	var job models.ForecastJob
	if err := json.Unmarshal(b, &job); err != nil {
		h.m.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode forecast job: %w", err)
	}
	if err := defaults.Set(&job); err != nil {
		return fmt.Errorf("forecast job defaults: %w", err)
	}
	if err := h.validate.Struct(job); err != nil {
		h.m.RecordError("consumer_validate")
		return fmt.Errorf("invalid forecast job: %w", err)
	}
	cfg, err := h.jobConfig(job)
	if err != nil {
		h.m.RecordError("consumer_validate")
		return err
	}

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx, job.Symbol); err != nil {
			return fmt.Errorf("throttled %s: %w", job.Symbol, err)
		}
	}

	start := time.Now()
	a, err := h.analyzer.Analyze(ctx, AnalysisRequest{Symbol: job.Symbol, Lookback: job.Lookback, Config: cfg})
	h.m.RecordLatency("consumer_analyze", time.Since(start).Seconds())
	if err != nil {
		h.m.RecordError("consumer_analyze")
		return err
	}
	h.l.Debug("forecast job done",
		applogger.String("symbol", a.Symbol),
		applogger.String("profile", string(a.Profile)),
		applogger.Int("rows", len(a.Signals)),
	)
	return nil
}

// JobLogFields reads the symbol and horizon of a raw job for consumer logs.
// Payloads that are not jobs yield no fields.
func JobLogFields(b []byte) []applogger.Field {
	var job models.ForecastJob
	if err := json.Unmarshal(b, &job); err != nil || job.Symbol == "" {
		return nil
	}
	fields := []applogger.Field{applogger.String("symbol", strings.ToUpper(strings.TrimSpace(job.Symbol)))}
	if job.Horizon > 0 {
		fields = append(fields, applogger.Int("n_future", job.Horizon))
	}
	return fields
}

func (h *ForecastRequestHandler) jobConfig(job models.ForecastJob) (models.RunConfig, error) {
	cfg := h.base
	cfg.Horizon = job.Horizon
	p, err := models.ParseRiskProfile(job.Profile)
	if err != nil {
		return cfg, err
	}
	cfg.RiskProfile = p
	return cfg, nil
}
