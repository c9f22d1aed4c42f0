package models

import (
	"fmt"
	"strings"
	"time"
)

// Decision is the per-day recommendation.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionHold Decision = "HOLD"
	DecisionSell Decision = "SELL"
)

// Signal is the recommendation for one forecast day.
type Signal struct {
	Date               time.Time `json:"date"`
	Decision           Decision  `json:"decision"`
	Score              int       `json:"score"`
	Rationale          []string  `json:"rationale"`
	ReferencePrice     float64   `json:"reference_price"`
	PredictedPrice     float64   `json:"predicted_price"`
	PredictedReturnPct float64   `json:"predicted_return_pct"`
	Volatility         Estimate  `json:"volatility"`
}

// RationaleText joins the rationale tags the way reports print them.
func (s Signal) RationaleText() string { return strings.Join(s.Rationale, ", ") }

// RiskProfile selects decision thresholds.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "conservative"
	ProfileModerate     RiskProfile = "moderate"
	ProfileAggressive   RiskProfile = "aggressive"
)

// Profiles lists every profile from most to least cautious.
var Profiles = []RiskProfile{ProfileConservative, ProfileModerate, ProfileAggressive}

// Thresholds are inclusive score bounds: BUY when score >= Buy, SELL when score <= Sell.
type Thresholds struct {
	Buy  int `json:"buy"`
	Sell int `json:"sell"`
}

// Thresholds returns the score bounds of the profile. Unknown profiles behave as moderate.
func (p RiskProfile) Thresholds() Thresholds {
	switch p {
	case ProfileAggressive:
		return Thresholds{Buy: 2, Sell: -3}
	case ProfileConservative:
		return Thresholds{Buy: 4, Sell: -1}
	default:
		return Thresholds{Buy: 3, Sell: -2}
	}
}

// ParseRiskProfile accepts English names and the Turkish aliases temkinli, orta, agresif.
func ParseRiskProfile(s string) (RiskProfile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "conservative", "temkinli":
		return ProfileConservative, nil
	case "moderate", "orta", "":
		return ProfileModerate, nil
	case "aggressive", "agresif":
		return ProfileAggressive, nil
	}
	return "", fmt.Errorf("unknown risk profile %q", s)
}
