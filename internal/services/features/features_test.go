package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	"FinCast/pkg/util"
)

func series(start time.Time, closes ...float64) models.PriceSeries {
	out := make(models.PriceSeries, len(closes))
	day := start
	for i, c := range closes {
		if i > 0 {
			day = util.NextBusinessDay(day)
		}
		out[i] = models.PriceBar{Date: day, Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	return out
}

func TestLogReturns(t *testing.T) {
	r := LogReturns([]float64{100, 110, 0, 50})
	assert.True(t, math.IsNaN(r[0]))
	assert.InDelta(t, math.Log(1.1), r[1], 1e-12)
	assert.True(t, math.IsNaN(r[2]))
	assert.True(t, math.IsNaN(r[3]))
}

func TestSMAWarmup(t *testing.T) {
	s := SMA([]float64{1, 2, 3, 4}, 3)
	assert.True(t, math.IsNaN(s[1]))
	assert.InDelta(t, 2.0, s[2], 1e-12)
	assert.InDelta(t, 3.0, s[3], 1e-12)
}

func TestRSIFlatAndMonotone(t *testing.T) {
	flat := make([]float64, 30)
	up := make([]float64, 30)
	for i := range flat {
		flat[i] = 10
		up[i] = float64(i + 1)
	}
	assert.Equal(t, 50.0, RSI(flat, RSIPeriod)[29])
	assert.Equal(t, 100.0, RSI(up, RSIPeriod)[29])
	assert.True(t, math.IsNaN(RSI(up, RSIPeriod)[RSIPeriod-1]))
}

func TestRSIBounded(t *testing.T) {
	xs := make([]float64, 100)
	for i := range xs {
		xs[i] = 100 + 10*math.Sin(float64(i)/3)
	}
	for _, v := range RSI(xs, RSIPeriod)[RSIPeriod:] {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestMACDWarmup(t *testing.T) {
	xs := make([]float64, 60)
	for i := range xs {
		xs[i] = float64(i)
	}
	line, sig, hist := MACD(xs, MACDFast, MACDSlow, MACDSignal)
	assert.True(t, math.IsNaN(line[MACDSlow-2]))
	assert.False(t, math.IsNaN(line[MACDSlow-1]))
	assert.True(t, math.IsNaN(sig[MACDSlow+MACDSignal-3]))
	assert.False(t, math.IsNaN(hist[MACDSlow+MACDSignal-2]))
	assert.Greater(t, line[59], 0.0)
}

func TestEMAWarmupAndLevel(t *testing.T) {
	xs := make([]float64, 40)
	for i := range xs {
		xs[i] = 7
	}
	e := EMA(xs, 10)
	assert.True(t, math.IsNaN(e[8]))
	for _, v := range e[9:] {
		assert.InDelta(t, 7.0, v, 1e-12)
	}
	assert.True(t, math.IsNaN(EMA(xs[:5], 10)[4]))
}

func TestSMAMatchesWindowMean(t *testing.T) {
	xs := make([]float64, 80)
	for i := range xs {
		xs[i] = 100 + 10*math.Sin(float64(i)/5)
	}
	s := SMA(xs, 20)
	for i := 19; i < len(xs); i++ {
		sum := 0.0
		for _, v := range xs[i-19 : i+1] {
			sum += v
		}
		assert.InDelta(t, sum/20, s[i], 1e-9)
	}
}

func TestNormalizeDedupesKeepingLatest(t *testing.T) {
	mon := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	raw := series(mon, 10, 11, 12)
	raw = append(raw, models.PriceBar{Date: raw[1].Date, Close: 99})

	out, rep := Normalize(raw)
	require.Len(t, out, 3)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 99.0, out[1].Close)
	assert.False(t, rep.Clean())
}

func TestNormalizeSortsAndFillsGaps(t *testing.T) {
	mon := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	wed := mon.AddDate(0, 0, 2)
	raw := models.PriceSeries{
		{Date: wed, Close: 12},
		{Date: mon, Close: 10},
		{Date: mon.AddDate(0, 0, 3), Close: -1},
	}
	out, rep := Normalize(raw)
	require.Len(t, out, 3)
	assert.True(t, rep.Unsorted)
	assert.Equal(t, 1, rep.Filled)
	assert.Equal(t, 1, rep.Dropped)
	assert.InDelta(t, 11.0, out[1].Close, 1e-12)
	assert.Equal(t, time.Tuesday, out[1].Date.Weekday())
}

func TestBuildKeepsAllRows(t *testing.T) {
	closes := make([]float64, 250)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	tbl := Build("THYAO", series(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), closes...))
	require.Equal(t, 250, tbl.Len())
	assert.False(t, tbl.Rows[0].LogReturn.Valid)
	assert.False(t, tbl.Rows[48].SMAFast.Valid)
	assert.True(t, tbl.Rows[49].SMAFast.Valid)
	assert.True(t, tbl.Current().SMASlow.Valid)
	assert.Len(t, tbl.LogReturnsPct(), 249)
}
