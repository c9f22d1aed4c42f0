// Package regression implements the windowed regression ensemble: every model
// learns close[t] from the W closes before it and forecasts recursively.
package regression

import (
	"fmt"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

// MinTrainingExamples is the fewest windows a regressor is trained on.
const MinTrainingExamples = 30

// Predictor maps one window of W closes to the next close.
type Predictor interface {
	Predict(window []float64) float64
}

// PredictorFunc adapts a function to Predictor.
type PredictorFunc func(window []float64) float64

func (f PredictorFunc) Predict(window []float64) float64 { return f(window) }

// BuildWindows returns len(series)-w rows: X[i] = series[i:i+w], y[i] = series[i+w].
// The first w observations have no full window and produce no target.
func BuildWindows(series []float64, w int) ([][]float64, []float64, error) {
	if w < 2 {
		return nil, nil, &domsvc.ConfigError{Field: "window_size", Reason: fmt.Sprintf("must be >= 2, got %d", w)}
	}
	if need := w + MinTrainingExamples; len(series) < need {
		return nil, nil, &domsvc.InsufficientHistoryError{Component: models.GroupRegression, Need: need, Have: len(series)}
	}
	n := len(series) - w
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X[i] = series[i : i+w : i+w]
		y[i] = series[i+w]
	}
	return X, y, nil
}
