package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/util"
)

// CHPriceStore reads and writes daily bars in ClickHouse.
type CHPriceStore struct {
	db *sqlx.DB
	l  *applogger.Logger
}

func NewCHPriceStore(ch *pkgch.Client, l *applogger.Logger) *CHPriceStore {
	return &CHPriceStore{db: ch.X(), l: l}
}

type barRow struct {
	Date   time.Time `db:"date"`
	Open   float64   `db:"open"`
	High   float64   `db:"high"`
	Low    float64   `db:"low"`
	Close  float64   `db:"close"`
	Volume float64   `db:"volume"`
}

func (r barRow) bar() models.PriceBar {
	return models.PriceBar{Date: util.Day(r.Date), Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
}

func toSeries(rows []barRow) models.PriceSeries {
	out := make(models.PriceSeries, len(rows))
	for i, r := range rows {
		out[i] = r.bar()
	}
	return out
}

func (s *CHPriceStore) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	start := time.Now()
	const q = `
        SELECT date, open, high, low, close, volume
        FROM ` + pricesTable + ` FINAL
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `
	var rows []barRow
	if err := s.db.SelectContext(ctx, &rows, q, symbol, util.Day(from), util.Day(to)); err != nil {
		s.l.Error("clickhouse daily_bars query error",
			applogger.String("symbol", symbol),
			applogger.Date("from", from),
			applogger.Date("to", to),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get daily bars: %w", err)
	}
	s.l.Debug("clickhouse daily_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return toSeries(rows), nil
}

// GetLatestNBars returns the last n bars in ascending date order.
func (s *CHPriceStore) GetLatestNBars(ctx context.Context, symbol string, n int) (models.PriceSeries, error) {
	start := time.Now()
	const q = `
        SELECT date, open, high, low, close, volume
        FROM ` + pricesTable + ` FINAL
        WHERE symbol = ?
        ORDER BY date DESC
        LIMIT ?
    `
	var rows []barRow
	if err := s.db.SelectContext(ctx, &rows, q, symbol, n); err != nil {
		s.l.Error("clickhouse latest_bars query error",
			applogger.String("symbol", symbol),
			applogger.Int("limit", n),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	s.l.Debug("clickhouse latest_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("limit", n),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return toSeries(rows), nil
}

func (s *CHPriceStore) StoreBars(ctx context.Context, symbol string, bars models.PriceSeries) error {
	rows := make([][]any, 0, len(bars))
	for _, b := range bars {
		if b.Date.IsZero() {
			continue
		}
		rows = append(rows, []any{symbol, util.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume})
	}
	if err := insertRows(ctx, s.db, pricesTable, []string{"symbol", "date", "open", "high", "low", "close", "volume"}, rows); err != nil {
		s.l.Error("clickhouse store_bars error", applogger.String("symbol", symbol), applogger.Error(err))
		return err
	}
	return nil
}

var (
	_ domrepo.PriceStore  = (*CHPriceStore)(nil)
	_ domrepo.PriceWriter = (*CHPriceStore)(nil)
)
