package usecase

import (
	"bytes"
	"context"
	"math"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/features"
	"FinCast/pkg/util"
)

// series builds n business-day bars starting 2022-01-03 with close f(i).
func series(n int, f func(i int) float64) models.PriceSeries {
	out := make(models.PriceSeries, n)
	d := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for i := range out {
		c := f(i)
		out[i] = models.PriceBar{Date: d, Open: c, High: c, Low: c, Close: c, Volume: 1000}
		d = util.NextBusinessDay(d)
	}
	return out
}

func table(n int, f func(i int) float64) models.FeatureTable {
	return features.Build("TEST", series(n, f))
}

func linear(i int) float64 { return 100 + float64(i) }

func wavy(i int) float64 {
	x := float64(i)
	return 100 + 0.05*x + 3*math.Sin(x/7) + 1.5*math.Cos(x/3.3)
}

// stubForecaster returns a constant path and remembers the history it saw.
type stubForecaster struct {
	name  string
	min   int
	value float64
	band  float64
	err   error

	mu       sync.Mutex
	seenLen  int
	seenLast time.Time
}

func (s *stubForecaster) Name() string                        { return s.name }
func (s *stubForecaster) MinHistory(domsvc.ForecastParams) int { return s.min }

func (s *stubForecaster) Forecast(_ context.Context, h models.FeatureTable, p domsvc.ForecastParams) (domsvc.PricePath, error) {
	s.mu.Lock()
	s.seenLen, s.seenLast = h.Len(), h.LastDate()
	s.mu.Unlock()
	if s.err != nil {
		return domsvc.PricePath{}, s.err
	}
	path := domsvc.PricePath{Points: make([]float64, p.Horizon)}
	for i := range path.Points {
		path.Points[i] = s.value
	}
	if s.band > 0 {
		path.Lower = make([]float64, p.Horizon)
		path.Upper = make([]float64, p.Horizon)
		for i := range path.Points {
			path.Lower[i] = s.value - s.band
			path.Upper[i] = s.value + s.band
		}
	}
	return path, nil
}

type stubVol struct {
	value float64
	err   error
}

func (v stubVol) Forecast(_ context.Context, _ []float64, h int) ([]float64, error) {
	if v.err != nil {
		return nil, v.err
	}
	out := make([]float64, h)
	for i := range out {
		out[i] = v.value
	}
	return out, nil
}

// blockingForecaster waits for its context.
type blockingForecaster struct{ name string }

func (b blockingForecaster) Name() string                        { return b.name }
func (b blockingForecaster) MinHistory(domsvc.ForecastParams) int { return 1 }
func (b blockingForecaster) Forecast(ctx context.Context, _ models.FeatureTable, _ domsvc.ForecastParams) (domsvc.PricePath, error) {
	<-ctx.Done()
	return domsvc.PricePath{}, ctx.Err()
}

// slowForecaster sleeps past any short deadline and then answers anyway.
type slowForecaster struct {
	name  string
	delay time.Duration
	value float64
}

func (s slowForecaster) Name() string                        { return s.name }
func (s slowForecaster) MinHistory(domsvc.ForecastParams) int { return 1 }
func (s slowForecaster) Forecast(_ context.Context, _ models.FeatureTable, p domsvc.ForecastParams) (domsvc.PricePath, error) {
	time.Sleep(s.delay)
	path := domsvc.PricePath{Points: make([]float64, p.Horizon)}
	for i := range path.Points {
		path.Points[i] = s.value
	}
	return path, nil
}

// slowVol is the volatility counterpart of slowForecaster.
type slowVol struct{ delay time.Duration }

func (v slowVol) Forecast(_ context.Context, _ []float64, h int) ([]float64, error) {
	time.Sleep(v.delay)
	out := make([]float64, h)
	for i := range out {
		out[i] = 1
	}
	return out, nil
}

func flatAt(v float64) func(int) float64 { return func(int) float64 { return v } }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
