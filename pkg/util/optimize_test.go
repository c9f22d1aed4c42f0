package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize"
)

func TestCtxRecorderStopsMinimize(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	slow := func(x []float64) float64 {
		time.Sleep(time.Millisecond)
		return (x[0]-3)*(x[0]-3) + x[1]*x[1]
	}
	start := time.Now()
	_, err := optimize.Minimize(optimize.Problem{Func: slow}, []float64{0, 0},
		&optimize.Settings{FuncEvaluations: 100000, Recorder: CtxRecorder{Ctx: ctx}}, &optimize.NelderMead{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCtxRecorderLiveContext(t *testing.T) {
	res, err := optimize.Minimize(optimize.Problem{Func: func(x []float64) float64 { return (x[0] - 2) * (x[0] - 2) }},
		[]float64{0}, &optimize.Settings{Recorder: CtxRecorder{Ctx: context.Background()}}, &optimize.NelderMead{})
	require.NoError(t, err)
	assert.InDelta(t, 2, res.X[0], 1e-3)
}
