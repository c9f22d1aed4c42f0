package models

import "time"

// Component names used in forecast rows, degradations and metrics.
const (
	ComponentARIMA         = "arima"
	ComponentDecomposition = "decomposition"
	ComponentSVR           = "svr"
	ComponentForest        = "random_forest"
	ComponentBoost         = "gradient_boosting"
	ComponentVolatility    = "volatility"

	GroupTrend      = "trend"
	GroupRegression = "regression"
)

// Weights of the final blend. TS + ML must equal 1.
type Weights struct {
	TS float64 `json:"ts"`
	ML float64 `json:"ml"`
}

// Degradation records a component that did not contribute to a run.
type Degradation struct {
	Component string `json:"component"`
	Reason    string `json:"reason"`
}

// ForecastRow is one future business day.
type ForecastRow struct {
	Date          time.Time `json:"date"`
	TrendA        Estimate  `json:"arima"`
	TrendB        Estimate  `json:"decomposition"`
	SVR           Estimate  `json:"svr"`
	Forest        Estimate  `json:"random_forest"`
	Boost         Estimate  `json:"gradient_boosting"`
	TSEnsemble    Estimate  `json:"ts_ensemble"`
	MLEnsemble    Estimate  `json:"ml_ensemble"`
	FinalEnsemble float64   `json:"final_ensemble"`
	Volatility    Estimate  `json:"volatility"`
	Lower         Estimate  `json:"lower"`
	Upper         Estimate  `json:"upper"`
	Confidence    Estimate  `json:"confidence"`
}

// SetComponent stores a named model forecast in its column. Unknown names are ignored.
func (r *ForecastRow) SetComponent(name string, v Estimate) {
	switch name {
	case ComponentARIMA:
		r.TrendA = v
	case ComponentDecomposition:
		r.TrendB = v
	case ComponentSVR:
		r.SVR = v
	case ComponentForest:
		r.Forest = v
	case ComponentBoost:
		r.Boost = v
	}
}

// ForecastTable is the combiner output: exactly Horizon rows on contiguous business days.
type ForecastTable struct {
	Symbol       string        `json:"symbol"`
	GeneratedAt  time.Time     `json:"generated_at"`
	LastDate     time.Time     `json:"last_date"`
	LastClose    float64       `json:"last_close"`
	Weights      Weights       `json:"weights"`
	Rows         []ForecastRow `json:"rows"`
	Degradations []Degradation `json:"degradations,omitempty"`
}

// Final returns the FinalEnsemble column.
func (t *ForecastTable) Final() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.FinalEnsemble
	}
	return out
}

// Degraded reports whether any component was dropped.
func (t *ForecastTable) Degraded() bool { return len(t.Degradations) > 0 }
