package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

var forecastColumns = []string{
	"symbol", "date", "risk_profile", "generated_at",
	"arima", "decomposition", "svr", "random_forest", "gradient_boosting",
	"ts_ensemble", "ml_ensemble", "final_ensemble", "volatility",
	"lower", "upper", "confidence", "decision", "score", "rationale",
}

// CHForecastStore persists analyses as flat records.
type CHForecastStore struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHForecastStore(ch *pkgch.Client, l *applogger.Logger) *CHForecastStore {
	return &CHForecastStore{ch: ch, db: ch.DB(), l: l}
}

func (s *CHForecastStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, Schema)
}

func (s *CHForecastStore) SaveAnalysis(ctx context.Context, a *models.Analysis) error {
	start := time.Now()
	recs := a.Records()
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = forecastRow(r)
	}
	if err := insertRows(ctx, s.db, forecastsTable, forecastColumns, rows); err != nil {
		s.l.Error("clickhouse save_analysis error", applogger.String("symbol", a.Symbol), applogger.Error(err))
		return err
	}
	s.l.Debug("clickhouse save_analysis ok",
		applogger.String("symbol", a.Symbol),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// forecastScale matches the Decimal(18, 4) columns of the forecasts table.
const forecastScale = 4

func scaled(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := d.Round(forecastScale)
	return &v
}

func forecastRow(r models.Record) []any {
	return []any{
		r.Symbol, util.Day(r.Date), r.Profile, r.GeneratedAt,
		scaled(r.ARIMA), scaled(r.Decomposition), scaled(r.SVR), scaled(r.Forest), scaled(r.Boost),
		scaled(r.TSEnsemble), scaled(r.MLEnsemble), r.Final.Round(forecastScale), scaled(r.Volatility),
		scaled(r.Lower), scaled(r.Upper), scaled(r.Confidence), string(r.Decision), int32(r.Score), r.Rationale,
	}
}

func (s *CHForecastStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

var _ domrepo.AnalysisStore = (*CHForecastStore)(nil)
