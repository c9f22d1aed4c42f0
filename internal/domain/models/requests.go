package models

// Requests for forecasting HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastRequest struct {
	Symbol   string  `query:"symbol" json:"symbol" validate:"required"`
	Horizon  int     `query:"n_future" json:"n_future" default:"10" validate:"gte=1,lte=365"`
	Window   int     `query:"window" json:"window" default:"30" validate:"gte=2,lte=512"`
	Profile  string  `query:"profile" json:"profile" default:"moderate" validate:"oneof=conservative moderate aggressive temkinli orta agresif"`
	TSWeight float64 `query:"ts_weight" json:"ts_weight" default:"0.8" validate:"gte=0,lte=1"`
	MLWeight float64 `query:"ml_weight" json:"ml_weight" default:"0.2" validate:"gte=0,lte=1"`
	Lookback int     `query:"lookback" json:"lookback" default:"750" validate:"gte=60,lte=5000"`
}

// SignalsRequest optionally scores the forecast under every risk profile.
type SignalsRequest struct {
	ForecastRequest
	Compare bool `query:"compare" json:"compare"`
}

type BacktestRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	TestDays int    `query:"test_days" json:"test_days" default:"30" validate:"gte=2,lte=365"`
	Window   int    `query:"window" json:"window" default:"30" validate:"gte=2,lte=512"`
	Lookback int    `query:"lookback" json:"lookback" default:"750" validate:"gte=60,lte=5000"`
}

// RiskProfileRequest carries the selected option (1-based) for each questionnaire item.
type RiskProfileRequest struct {
	Answers []int `json:"answers" validate:"required,dive,gte=1,lte=3"`
}

// ForecastJob is the Kafka payload that asks for an analysis.
type ForecastJob struct {
	Symbol   string `json:"symbol" validate:"required"`
	Horizon  int    `json:"n_future" default:"10" validate:"gte=1,lte=365"`
	Profile  string `json:"profile" default:"moderate"`
	Lookback int    `json:"lookback" default:"750" validate:"gte=60"`
}
