package models

import (
	"time"

	"github.com/creasty/defaults"
)

// RunConfig controls one forecasting run.
type RunConfig struct {
	Horizon           int           `json:"n_future" yaml:"n_future" default:"10" validate:"gte=1,lte=365"`
	WindowSize        int           `json:"window_size" yaml:"window_size" default:"30" validate:"gte=2,lte=512"`
	RiskProfile       RiskProfile   `json:"risk_profile" yaml:"risk_profile" default:"moderate" validate:"oneof=conservative moderate aggressive"`
	TSWeight          float64       `json:"ts_weight" yaml:"ts_weight" default:"0.8" validate:"gte=0,lte=1"`
	MLWeight          float64       `json:"ml_weight" yaml:"ml_weight" default:"0.2" validate:"gte=0,lte=1"`
	BacktestDays      int           `json:"backtest_days" yaml:"backtest_days" default:"30" validate:"gte=2"`
	ForecasterTimeout time.Duration `json:"forecaster_timeout" yaml:"forecaster_timeout" default:"60s" validate:"gt=0"`
	Parallel          bool          `json:"parallel" yaml:"parallel" default:"true"`
}

// NewRunConfig returns a config with every default applied.
func NewRunConfig() RunConfig {
	var c RunConfig
	_ = defaults.Set(&c)
	return c
}

func (c RunConfig) Weights() Weights { return Weights{TS: c.TSWeight, ML: c.MLWeight} }
