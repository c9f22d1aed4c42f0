package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Analysis is the joint output of one run: forecast table plus its signals.
type Analysis struct {
	Symbol      string         `json:"symbol"`
	Profile     RiskProfile    `json:"risk_profile"`
	GeneratedAt time.Time      `json:"generated_at"`
	Forecast    *ForecastTable `json:"forecast"`
	Signals     []Signal       `json:"signals"`
}

// NextDay summarises the first forecast day.
type NextDay struct {
	Date           time.Time `json:"date"`
	PredictedPrice float64   `json:"predicted_price"`
	Decision       Decision  `json:"decision"`
	Rationale      string    `json:"rationale"`
	Volatility     Estimate  `json:"volatility"`
	Confidence     Estimate  `json:"confidence"`
}

// NextDay returns the summary of the first row, or false when the analysis is empty.
func (a *Analysis) NextDay() (NextDay, bool) {
	if a == nil || a.Forecast == nil || len(a.Forecast.Rows) == 0 || len(a.Signals) == 0 {
		return NextDay{}, false
	}
	row, sig := a.Forecast.Rows[0], a.Signals[0]
	return NextDay{
		Date:           row.Date,
		PredictedPrice: row.FinalEnsemble,
		Decision:       sig.Decision,
		Rationale:      sig.RationaleText(),
		Volatility:     row.Volatility,
		Confidence:     row.Confidence,
	}, true
}

// Record is the flat export row of one forecast day.
type Record struct {
	Symbol        string           `json:"symbol"`
	Date          time.Time        `json:"date"`
	Profile       string           `json:"risk_profile"`
	ARIMA         *decimal.Decimal `json:"arima"`
	Decomposition *decimal.Decimal `json:"decomposition"`
	SVR           *decimal.Decimal `json:"svr"`
	Forest        *decimal.Decimal `json:"random_forest"`
	Boost         *decimal.Decimal `json:"gradient_boosting"`
	TSEnsemble    *decimal.Decimal `json:"ts_ensemble"`
	MLEnsemble    *decimal.Decimal `json:"ml_ensemble"`
	Final         decimal.Decimal  `json:"final_ensemble"`
	Volatility    *decimal.Decimal `json:"volatility"`
	Lower         *decimal.Decimal `json:"lower"`
	Upper         *decimal.Decimal `json:"upper"`
	Confidence    *decimal.Decimal `json:"confidence"`
	Decision      Decision         `json:"decision"`
	Score         int              `json:"score"`
	Rationale     string           `json:"rationale"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

func decimalOf(e Estimate) *decimal.Decimal {
	if !e.Valid {
		return nil
	}
	d := decimal.NewFromFloat(e.Value)
	return &d
}

// Records flattens the analysis, one record per forecast day. Values keep the
// shortest decimal form of the float; stores round to their own scale.
func (a *Analysis) Records() []Record {
	if a == nil || a.Forecast == nil {
		return nil
	}
	out := make([]Record, 0, len(a.Forecast.Rows))
	for i, row := range a.Forecast.Rows {
		rec := Record{
			Symbol:        a.Symbol,
			Date:          row.Date,
			Profile:       string(a.Profile),
			ARIMA:         decimalOf(row.TrendA),
			Decomposition: decimalOf(row.TrendB),
			SVR:           decimalOf(row.SVR),
			Forest:        decimalOf(row.Forest),
			Boost:         decimalOf(row.Boost),
			TSEnsemble:    decimalOf(row.TSEnsemble),
			MLEnsemble:    decimalOf(row.MLEnsemble),
			Final:         decimal.NewFromFloat(row.FinalEnsemble),
			Volatility:    decimalOf(row.Volatility),
			Lower:         decimalOf(row.Lower),
			Upper:         decimalOf(row.Upper),
			Confidence:    decimalOf(row.Confidence),
			GeneratedAt:   a.GeneratedAt,
		}
		if i < len(a.Signals) {
			rec.Decision = a.Signals[i].Decision
			rec.Score = a.Signals[i].Score
			rec.Rationale = a.Signals[i].RationaleText()
		}
		out = append(out, rec)
	}
	return out
}
