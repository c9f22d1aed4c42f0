package models

import "time"

// PriceBar is one business day of OHLCV data.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is a daily history ordered by date.
type PriceSeries []PriceBar

func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// FeatureRow is a price bar with derived indicators. Indicators are unavailable during warm-up.
type FeatureRow struct {
	PriceBar
	LogReturn  Estimate `json:"log_return"`
	RSI        Estimate `json:"rsi"`
	SMAFast    Estimate `json:"sma_50"`
	SMASlow    Estimate `json:"sma_200"`
	MACD       Estimate `json:"macd"`
	MACDSignal Estimate `json:"macd_signal"`
	MACDHist   Estimate `json:"macd_hist"`
}

// FeatureTable is the immutable input of a forecasting run.
type FeatureTable struct {
	Symbol string       `json:"symbol"`
	Rows   []FeatureRow `json:"rows"`
}

func (t FeatureTable) Len() int { return len(t.Rows) }

func (t FeatureTable) Closes() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Close
	}
	return out
}

func (t FeatureTable) Dates() []time.Time {
	out := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Date
	}
	return out
}

// LogReturnsPct returns the available log-returns scaled by 100.
func (t FeatureTable) LogReturnsPct() []float64 {
	out := make([]float64, 0, len(t.Rows))
	for _, r := range t.Rows {
		if r.LogReturn.Valid {
			out = append(out, r.LogReturn.Value*100)
		}
	}
	return out
}

// Current is the last row, or the zero row for an empty table.
func (t FeatureTable) Current() FeatureRow {
	if len(t.Rows) == 0 {
		return FeatureRow{}
	}
	return t.Rows[len(t.Rows)-1]
}

func (t FeatureTable) LastDate() time.Time { return t.Current().Date }
func (t FeatureTable) LastClose() float64 { return t.Current().Close }

// Head returns the first n rows. The backing array is shared and must not be mutated.
func (t FeatureTable) Head(n int) FeatureTable {
	n = min(max(n, 0), len(t.Rows))
	return FeatureTable{Symbol: t.Symbol, Rows: t.Rows[:n:n]}
}

// Tail returns the last n rows.
func (t FeatureTable) Tail(n int) FeatureTable {
	n = min(max(n, 0), len(t.Rows))
	return FeatureTable{Symbol: t.Symbol, Rows: t.Rows[len(t.Rows)-n:]}
}
