package features

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// Indicator periods.
const (
	RSIPeriod     = 14
	SMAFastPeriod = 50
	SMASlowPeriod = 200
	MACDFast      = 12
	MACDSlow      = 26
	MACDSignal    = 9
)

// LogReturns computes r_t = ln(C_t / C_{t-1}); index 0 is NaN.
// Non-positive prices yield NaN for the affected returns.
func LogReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		if i == 0 || closes[i-1] <= 0 || closes[i] <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(closes[i] / closes[i-1])
	}
	return out
}

// SMA is the simple moving average; the first period-1 values are NaN.
func SMA(xs []float64, period int) []float64 {
	if period <= 0 {
		return nanSlice(len(xs))
	}
	sma := trend.NewSmaWithPeriod[float64](period)
	return align(xs, sma.Compute, sma.IdlePeriod())
}

// EMA is the exponential average with alpha = 2/(span+1). The first span-1
// values are NaN.
func EMA(xs []float64, span int) []float64 {
	if span <= 0 {
		return nanSlice(len(xs))
	}
	ema := trend.NewEmaWithPeriod[float64](span)
	return align(xs, ema.Compute, ema.IdlePeriod())
}

// RSI uses Wilder smoothing. A window without any movement reads 50.
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		gains[i-1], losses[i-1] = move(closes[i] - closes[i-1])
	}
	g := align(gains, trend.NewRmaWithPeriod[float64](period).Compute, period-1)
	l := align(losses, trend.NewRmaWithPeriod[float64](period).Compute, period-1)
	for i := period; i < len(closes); i++ {
		out[i] = rsiValue(g[i-1], l[i-1])
	}
	return out
}

// MACD returns the line, signal and histogram. The line starts once the slow
// average is seeded; the signal needs a further signal-1 rows.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(closes)
	line, sig, hist = nanSlice(n), nanSlice(n), nanSlice(n)
	if n < slow || fast > slow {
		return line, sig, hist
	}
	ef, es := EMA(closes, fast), EMA(closes, slow)
	for i := slow - 1; i < n; i++ {
		line[i] = ef[i] - es[i]
	}
	sr := EMA(line[slow-1:], signal)
	for i := slow - 1; i < n; i++ {
		sig[i] = sr[i-(slow-1)]
		if !math.IsNaN(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return line, sig, hist
}

// align runs an indicator over xs and shifts its output back so index i of
// the result belongs to xs[i]. The idle prefix is NaN.
func align(xs []float64, compute func(<-chan float64) <-chan float64, idle int) []float64 {
	out := nanSlice(len(xs))
	if len(xs) <= idle {
		return out
	}
	vals := helper.ChanToSlice(compute(helper.SliceToChan(xs)))
	copy(out[idle:], vals)
	return out
}

func move(d float64) (gain, loss float64) {
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(gain, loss float64) float64 {
	switch {
	case gain == 0 && loss == 0:
		return 50
	case loss == 0:
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
