// Package signal turns a combined forecast into per-day BUY/HOLD/SELL
// decisions with rationale tags.
package signal

import (
	"math"

	"FinCast/internal/domain/models"
)

// Rationale tags.
const (
	TagStrongUptrend = "strong uptrend expected"
	TagUptrend       = "moderate uptrend"
	TagSharpDown     = "sharp downtrend expected"
	TagWeakOutlook   = "weak outlook"
	TagSideways      = "sideways"
	TagHighVol       = "high volatility risk"
	TagLowVol        = "low volatility"
	TagOversold      = "RSI oversold"
	TagOverbought    = "RSI overbought"
	TagAboveMA       = "above moving average"
	TagBelowMA       = "below moving average"
)

const (
	oversold   = 30.0
	overbought = 70.0
	highVol    = 3.5
	lowVol     = 1.5

	// maTolerance is relative to the SMA. A reference within it counts as below.
	maTolerance = 1e-9
)

// TechnicalContext holds the indicators of the last historical row. The same
// values score every forecast day.
type TechnicalContext struct {
	RSI models.Estimate
	SMA models.Estimate
}

// ContextFrom reads the current RSI and fast SMA off a feature table.
func ContextFrom(t models.FeatureTable) TechnicalContext {
	cur := t.Current()
	return TechnicalContext{RSI: cur.RSI, SMA: cur.SMAFast}
}

// Step scores one forecast row against the reference price and returns the
// next reference price with the signal.
func Step(ref float64, row models.ForecastRow, tech TechnicalContext, th models.Thresholds) (float64, models.Signal) {
	sig := models.Signal{
		Date:           row.Date,
		ReferencePrice: ref,
		PredictedPrice: row.FinalEnsemble,
		Volatility:     row.Volatility,
	}
	if ref != 0 {
		sig.PredictedReturnPct = (row.FinalEnsemble - ref) / ref * 100
	}

	score, tag := trendScore(sig.PredictedReturnPct)
	sig.Rationale = append(sig.Rationale, tag)

	if row.Volatility.Valid {
		switch v := row.Volatility.Value; {
		case v > highVol:
			score -= 2
			sig.Rationale = append(sig.Rationale, TagHighVol)
		case v < lowVol:
			score++
			sig.Rationale = append(sig.Rationale, TagLowVol)
		}
	}

	if tech.RSI.Valid {
		switch {
		case tech.RSI.Value < oversold:
			score += 2
			sig.Rationale = append(sig.Rationale, TagOversold)
		case tech.RSI.Value > overbought:
			score -= 2
			sig.Rationale = append(sig.Rationale, TagOverbought)
		}
	}
	if tech.SMA.Valid {
		if ref-tech.SMA.Value > maTolerance*math.Abs(tech.SMA.Value) {
			score++
			sig.Rationale = append(sig.Rationale, TagAboveMA)
		} else {
			score--
			sig.Rationale = append(sig.Rationale, TagBelowMA)
		}
	}

	sig.Score = score
	sig.Decision = Decide(score, th)
	return row.FinalEnsemble, sig
}

func trendScore(pct float64) (int, string) {
	switch {
	case pct > 2.0:
		return 3, TagStrongUptrend
	case pct > 0.5:
		return 1, TagUptrend
	case pct < -2.0:
		return -3, TagSharpDown
	case pct < -0.5:
		return -1, TagWeakOutlook
	}
	return 0, TagSideways
}

// Decide maps a score to a decision. Both bounds are inclusive.
func Decide(score int, th models.Thresholds) models.Decision {
	switch {
	case score >= th.Buy:
		return models.DecisionBuy
	case score <= th.Sell:
		return models.DecisionSell
	}
	return models.DecisionHold
}

// Generate folds Step over the rows in date order. The reference price starts
// at lastClose and becomes each day's final ensemble forecast.
func Generate(rows []models.ForecastRow, lastClose float64, tech TechnicalContext, th models.Thresholds) []models.Signal {
	out := make([]models.Signal, 0, len(rows))
	fold(rows, lastClose, func(ref float64, row models.ForecastRow) float64 {
		next, sig := Step(ref, row, tech, th)
		out = append(out, sig)
		return next
	})
	return out
}

func fold[T, A any](xs []T, acc A, f func(A, T) A) A {
	for _, x := range xs {
		acc = f(acc, x)
	}
	return acc
}

// CompareProfiles runs Generate once per risk profile.
func CompareProfiles(rows []models.ForecastRow, lastClose float64, tech TechnicalContext) map[models.RiskProfile][]models.Signal {
	out := make(map[models.RiskProfile][]models.Signal, len(models.Profiles))
	for _, p := range models.Profiles {
		out[p] = Generate(rows, lastClose, tech, p.Thresholds())
	}
	return out
}
