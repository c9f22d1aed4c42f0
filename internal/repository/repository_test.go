package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func newMockClient(t *testing.T) (*pkgch.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := pkgch.FromDB(db)
	t.Cleanup(func() { _ = c.Close() })
	return c, mock
}

func sampleAnalysis() *models.Analysis {
	return &models.Analysis{
		Symbol:      "AAPL",
		Profile:     models.ProfileModerate,
		GeneratedAt: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
		Forecast: &models.ForecastTable{
			Symbol: "AAPL",
			Rows: []models.ForecastRow{
				{Date: day("2024-01-08"), TrendA: models.Some(101.123456), FinalEnsemble: 101.5, Volatility: models.Some(1.2)},
				{Date: day("2024-01-09"), TrendA: models.Some(102), FinalEnsemble: 102.25},
			},
		},
		Signals: []models.Signal{
			{Decision: models.DecisionBuy, Score: 3, Rationale: []string{"uptrend", "low volatility"}},
			{Decision: models.DecisionHold, Score: 1},
		},
	}
}

func TestInsertRowsChunks(t *testing.T) {
	c, mock := newMockClient(t)
	rows := make([][]any, chunkSize+5)
	for i := range rows {
		rows[i] = []any{i, "x"}
	}
	mock.ExpectExec(`INSERT INTO t \(a, b\) VALUES \(\?, \?\),`).WillReturnResult(sqlmock.NewResult(0, chunkSize))
	mock.ExpectExec(`INSERT INTO t \(a, b\) VALUES`).WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, insertRows(context.Background(), c.DB(), "t", []string{"a", "b"}, rows))
	require.NoError(t, mock.ExpectationsWereMet())

	require.NoError(t, insertRows(context.Background(), c.DB(), "t", []string{"a"}, nil))
}

func TestInsertRowsWrapsError(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectExec("INSERT INTO t").WillReturnError(errors.New("ch down"))
	err := insertRows(context.Background(), c.DB(), "t", []string{"a"}, [][]any{{1}})
	assert.ErrorContains(t, err, "insert t: ch down")
}

func TestCHPriceStoreLatestBarsAscending(t *testing.T) {
	c, mock := newMockClient(t)
	rows := sqlmock.NewRows([]string{"date", "open", "high", "low", "close", "volume"}).
		AddRow(day("2024-01-03"), 3.0, 3.0, 3.0, 3.0, 30.0).
		AddRow(day("2024-01-02"), 2.0, 2.0, 2.0, 2.0, 20.0)
	mock.ExpectQuery(`SELECT date, open, high, low, close, volume\s+FROM fincast\.daily_prices FINAL`).
		WithArgs("AAPL", 2).
		WillReturnRows(rows)

	s := NewCHPriceStore(c, applogger.Nop())
	bars, err := s.GetLatestNBars(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, day("2024-01-02"), bars[0].Date)
	assert.Equal(t, 3.0, bars[1].Close)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHPriceStoreDailyBarsError(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectQuery("SELECT").WillReturnError(errors.New("timeout"))
	s := NewCHPriceStore(c, applogger.Nop())
	_, err := s.GetDailyBars(context.Background(), "AAPL", day("2024-01-01"), day("2024-02-01"))
	assert.ErrorContains(t, err, "get daily bars")
}

func TestCHPriceStoreStoreBarsSkipsUndated(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectExec(`INSERT INTO fincast\.daily_prices \(symbol, date, open, high, low, close, volume\)`).
		WithArgs("AAPL", day("2024-01-02"), 1.0, 2.0, 0.5, 1.5, 100.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := NewCHPriceStore(c, applogger.Nop())
	err := s.StoreBars(context.Background(), "AAPL", models.PriceSeries{
		{Date: day("2024-01-02"), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Open: 9},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCHForecastStoreSaveAnalysis(t *testing.T) {
	c, mock := newMockClient(t)
	mock.ExpectExec(`INSERT INTO fincast\.forecasts \(symbol, date, risk_profile, generated_at, arima`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	s := NewCHForecastStore(c, applogger.Nop())
	require.NoError(t, s.SaveAnalysis(context.Background(), sampleAnalysis()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForecastRowRoundsToColumnScale(t *testing.T) {
	recs := sampleAnalysis().Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "101.123456", recs[0].ARIMA.String())

	row := forecastRow(recs[0])
	require.Len(t, row, len(forecastColumns))
	arima, ok := row[4].(*decimal.Decimal)
	require.True(t, ok)
	assert.Equal(t, "101.1235", arima.String())
	assert.Nil(t, row[5].(*decimal.Decimal))
	assert.Equal(t, "101.5", row[11].(decimal.Decimal).String())
	assert.Equal(t, "BUY", row[16])
}

func TestCHForecastStoreInitAndHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	c := pkgch.FromDB(db)
	defer c.Close()

	for range Schema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectPing()

	s := NewCHForecastStore(c, applogger.Nop())
	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, s.Health(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

type fakeProducer struct {
	err    error
	calls  int
	topic  string
	key    string
	value  any
	closed bool
}

func (p *fakeProducer) Publish(_ context.Context, topic string, key []byte, value any) error {
	p.calls++
	p.topic, p.key, p.value = topic, string(key), value
	return p.err
}

func (p *fakeProducer) Close() error {
	p.closed = true
	return nil
}

func TestKafkaSignalPublisherPayload(t *testing.T) {
	fp := &fakeProducer{}
	pub := NewKafkaSignalPublisher(fp, "fincast.signals", nil)

	require.NoError(t, pub.PublishAnalysis(context.Background(), sampleAnalysis()))
	assert.Equal(t, "fincast.signals", fp.topic)
	assert.Equal(t, "AAPL", fp.key)

	b, err := json.Marshal(fp.value)
	require.NoError(t, err)
	var msg AnalysisMessage
	require.NoError(t, json.Unmarshal(b, &msg))
	require.NotNil(t, msg.NextDay)
	assert.Equal(t, models.DecisionBuy, msg.NextDay.Decision)
	assert.Equal(t, 101.5, msg.NextDay.PredictedPrice)
	require.Len(t, msg.Records, 2)
	assert.Equal(t, "101.123456", msg.Records[0].ARIMA.String())
	assert.Equal(t, "uptrend, low volatility", msg.Records[0].Rationale)

	require.NoError(t, pub.Close())
	assert.True(t, fp.closed)
}

func TestKafkaSignalPublisherBreakerOpens(t *testing.T) {
	fp := &fakeProducer{err: errors.New("broker down")}
	pub := NewKafkaSignalPublisher(fp, "s", applogger.Nop())

	for i := 0; i < 3; i++ {
		assert.ErrorContains(t, pub.PublishAnalysis(context.Background(), sampleAnalysis()), "broker down")
	}
	assert.Equal(t, gobreaker.StateOpen, pub.State())

	err := pub.PublishAnalysis(context.Background(), sampleAnalysis())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, fp.calls)
}

const sampleCSV = `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-03,11,12,10,11.5,11.4,2000
2024-01-02,10,11,9,10.5,10.4,1000
2024-01-04,,,,null,,
2024-01-05,12,13,11,12.5,12.4,
`

func TestReadCSV(t *testing.T) {
	bars, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, day("2024-01-02"), bars[0].Date)
	assert.Equal(t, 10.5, bars[0].Close)
	assert.Equal(t, 1000.0, bars[0].Volume)
	assert.Equal(t, 12.5, bars[2].Close)
	assert.Zero(t, bars[2].Volume)
}

func TestReadCSVWithByteOrderMark(t *testing.T) {
	bars, err := ReadCSV(strings.NewReader("\uFEFF" + sampleCSV))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, day("2024-01-02"), bars[0].Date)
	assert.Equal(t, 10.5, bars[0].Close)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Date,Open\n2024-01-02,1\n"))
	assert.ErrorContains(t, err, "missing close column")

	_, err = ReadCSV(strings.NewReader("Date,Close\nyesterday,1\n"))
	assert.ErrorContains(t, err, "line 2: bad date")

	_, err = ReadCSV(strings.NewReader("Date,Close\n2024-01-02,abc\n"))
	assert.ErrorContains(t, err, "bad close")

	_, err = ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestCSVPriceStore(t *testing.T) {
	bars, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	s := NewCSVPriceStore()
	require.NoError(t, s.StoreBars(context.Background(), "aapl", bars))

	latest, err := s.GetLatestNBars(context.Background(), "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, day("2024-01-03"), latest[0].Date)

	all, err := s.GetLatestNBars(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	window, err := s.GetDailyBars(context.Background(), "AAPL", day("2024-01-03"), day("2024-01-04"))
	require.NoError(t, err)
	require.Len(t, window, 1)

	_, err = s.GetLatestNBars(context.Background(), "MSFT", 5)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}
