package features

import (
	"FinCast/internal/domain/models"
)

// Build derives the indicator columns for an already normalized series.
// Warm-up rows keep unavailable indicators; no row is dropped.
func Build(symbol string, series models.PriceSeries) models.FeatureTable {
	closes := series.Closes()
	rets := LogReturns(closes)
	rsi := RSI(closes, RSIPeriod)
	fast := SMA(closes, SMAFastPeriod)
	slow := SMA(closes, SMASlowPeriod)
	line, sig, hist := MACD(closes, MACDFast, MACDSlow, MACDSignal)

	rows := make([]models.FeatureRow, len(series))
	for i, b := range series {
		rows[i] = models.FeatureRow{
			PriceBar:   b,
			LogReturn:  models.Some(rets[i]),
			RSI:        models.Some(rsi[i]),
			SMAFast:    models.Some(fast[i]),
			SMASlow:    models.Some(slow[i]),
			MACD:       models.Some(line[i]),
			MACDSignal: models.Some(sig[i]),
			MACDHist:   models.Some(hist[i]),
		}
	}
	return models.FeatureTable{Symbol: symbol, Rows: rows}
}

// Prepare normalizes raw bars and builds the feature table in one step.
func Prepare(symbol string, raw models.PriceSeries) (models.FeatureTable, NormalizeReport) {
	series, rep := Normalize(raw)
	return Build(symbol, series), rep
}
