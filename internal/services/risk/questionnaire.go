// Package risk scores the investor questionnaire into a risk profile.
package risk

import (
	"fmt"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

// Option is one answer choice with its score.
type Option struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// Question has exactly three options, answered with 1..3.
type Question struct {
	ID      int       `json:"id"`
	Text    string    `json:"text"`
	Options [3]Option `json:"options"`
}

// Questionnaire is the fixed four-question survey.
var Questionnaire = []Question{
	{ID: 1, Text: "What is your main goal when investing?", Options: [3]Option{
		{"Protect my money against inflation (low risk)", 3},
		{"Balanced growth (medium risk)", 6},
		{"Maximum return (high risk)", 10},
	}},
	{ID: 2, Text: "How long do you plan to leave this investment untouched?", Options: [3]Option{
		{"Less than 1 year", 2},
		{"1 to 3 years", 6},
		{"More than 3 years", 10},
	}},
	{ID: 3, Text: "Markets fell and your portfolio lost 20%. What do you do?", Options: [3]Option{
		{"Sell to save what is left", 0},
		{"Worry but hold and wait", 5},
		{"See it as a buying opportunity and add", 10},
	}},
	{ID: 4, Text: "How would you rate your knowledge of financial markets?", Options: [3]Option{
		{"Little or none", 2},
		{"Basic", 5},
		{"Advanced, with experience", 8},
	}},
}

// Score sums the option scores for answers given in question order.
func Score(answers []int) (int, error) {
	if len(answers) != len(Questionnaire) {
		return 0, &domsvc.ConfigError{Field: "answers", Reason: fmt.Sprintf("expected %d answers, got %d", len(Questionnaire), len(answers))}
	}
	total := 0
	for i, a := range answers {
		if a < 1 || a > 3 {
			return 0, &domsvc.ConfigError{Field: "answers", Reason: fmt.Sprintf("question %d: option %d out of range 1..3", Questionnaire[i].ID, a)}
		}
		total += Questionnaire[i].Options[a-1].Score
	}
	return total, nil
}

// ProfileFromScore buckets a total: 0-14 conservative, 15-24 moderate, 25+ aggressive.
// Anything outside those ranges falls back to moderate.
func ProfileFromScore(total int) models.RiskProfile {
	switch {
	case total >= 0 && total <= 14:
		return models.ProfileConservative
	case total >= 15 && total <= 24:
		return models.ProfileModerate
	case total >= 25 && total <= 100:
		return models.ProfileAggressive
	}
	return models.ProfileModerate
}

// Assess scores answers and returns the matching profile.
func Assess(answers []int) (models.RiskProfile, int, error) {
	total, err := Score(answers)
	if err != nil {
		return "", 0, err
	}
	return ProfileFromScore(total), total, nil
}
