package trend

import "math"

// kpssCritical5 is the 5% critical value of the KPSS level-stationarity test.
const kpssCritical5 = 0.463

// kpssLevel returns the KPSS statistic for level stationarity with the
// Bartlett-weighted long-run variance and lag trunc(3*sqrt(n)/13).
// A series without variation is reported as stationary.
func kpssLevel(x []float64) float64 {
	n := len(x)
	if n < 3 {
		return 0
	}
	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)
	e := make([]float64, n)
	for i, v := range x {
		e[i] = v - mean
	}

	lags := int(3 * math.Sqrt(float64(n)) / 13)
	lrv := 0.0
	for _, v := range e {
		lrv += v * v
	}
	for s := 1; s <= lags; s++ {
		w := 1 - float64(s)/float64(lags+1)
		acc := 0.0
		for t := s; t < n; t++ {
			acc += e[t] * e[t-s]
		}
		lrv += 2 * w * acc
	}
	lrv /= float64(n)
	if lrv <= 1e-12*(1+mean*mean) {
		return 0
	}

	var cum, eta float64
	for _, v := range e {
		cum += v
		eta += cum * cum
	}
	return eta / (float64(n) * float64(n) * lrv)
}

// ndiffs picks the smallest d <= maxD for which the differenced series passes KPSS at 5%.
func ndiffs(y []float64, maxD int) int {
	x := y
	for d := 0; d < maxD; d++ {
		if kpssLevel(x) <= kpssCritical5 {
			return d
		}
		x = diff(x)
		if len(x) < 3 {
			return d
		}
	}
	return maxD
}

func diff(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}
