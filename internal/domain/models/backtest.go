package models

import "time"

// BacktestResult compares a forecast on a truncated history with the held-out closes.
type BacktestResult struct {
	Symbol              string        `json:"symbol"`
	TestDays            int           `json:"test_days"`
	TrainEnd            time.Time     `json:"train_end"`
	TestStart           time.Time     `json:"test_start"`
	TestEnd             time.Time     `json:"test_end"`
	RMSE                float64       `json:"rmse"`
	MAPE                float64       `json:"mape"`
	DirectionalAccuracy float64       `json:"directional_accuracy"`
	Sharpe              float64       `json:"sharpe"`
	Actual              []float64     `json:"actual"`
	Predicted           []float64     `json:"predicted"`
	Degradations        []Degradation `json:"degradations,omitempty"`
}
