package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinCast/internal/domain/models"
	"FinCast/internal/usecase"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRiskWithAnswers(t *testing.T) {
	out, err := execute(t, "", "risk", "--answers", "3,3,3,3")
	require.NoError(t, err)
	assert.Contains(t, out, "Risk profile: aggressive (score 38)")

	_, err = execute(t, "", "risk", "--answers", "1,2")
	assert.ErrorContains(t, err, "expected 4 answers")
}

func TestRiskInteractive(t *testing.T) {
	out, err := execute(t, "9\n1\n1\n1\n1\n", "risk")
	require.NoError(t, err)
	assert.Contains(t, out, "please enter 1, 2 or 3")
	assert.Contains(t, out, "Risk profile: conservative (score 7)")

	_, err = execute(t, "1\n", "risk")
	assert.Error(t, err)
}

func TestForecastRequiresCSV(t *testing.T) {
	_, err := execute(t, "", "forecast")
	assert.ErrorContains(t, err, `required flag(s) "csv" not set`)

	_, err = execute(t, "", "forecast", "--csv", "/nonexistent/aapl.csv")
	assert.ErrorContains(t, err, "open csv")

	_, err = execute(t, "", "forecast", "--csv", "x.csv", "--profile", "yolo")
	assert.ErrorContains(t, err, "unknown risk profile")
}

func TestSymbolName(t *testing.T) {
	d := dataFlags{csv: "/data/thyao.is.csv"}
	assert.Equal(t, "THYAO.IS", d.symbolName())
	d.symbol = " aapl "
	assert.Equal(t, "AAPL", d.symbolName())
}

func TestRunFlagsApply(t *testing.T) {
	cmd := newForecastCmd(&rootOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--ts-weight", "0.6", "-n", "5", "-p", "orta"}))

	var run runFlags
	run.horizon, run.tsWeight, run.profile = 5, 0.6, "orta"
	cfg, err := run.apply(cmd, models.NewRunConfig())
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Horizon)
	assert.Equal(t, 30, cfg.WindowSize)
	assert.Equal(t, models.ProfileModerate, cfg.RiskProfile)
	assert.InDelta(t, 0.6, cfg.TSWeight, 1e-12)
	assert.InDelta(t, 0.4, cfg.MLWeight, 1e-12)
}

func sampleAnalysis() *models.Analysis {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	rows := []models.ForecastRow{
		{Date: day, TSEnsemble: models.Some(101), FinalEnsemble: 101.25, Volatility: models.Some(18.5)},
		{Date: day.AddDate(0, 0, 1), FinalEnsemble: 102},
	}
	return &models.Analysis{
		Symbol:      "AAPL",
		Profile:     models.ProfileModerate,
		GeneratedAt: day,
		Forecast: &models.ForecastTable{
			Rows:         rows,
			Degradations: []models.Degradation{{Component: models.ComponentSVR, Reason: "fit failed"}},
		},
		Signals: []models.Signal{
			{Date: day, Decision: models.DecisionBuy, Score: 3, Rationale: []string{"uptrend", "low volatility"}},
			{Date: day.AddDate(0, 0, 1), Decision: models.DecisionHold},
		},
	}
}

func TestRenderAnalysis(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderAnalysis(&buf, sampleAnalysis()))
	out := buf.String()
	assert.Contains(t, out, "warning: svr unavailable: fit failed")
	assert.Contains(t, out, "next day 2024-03-04: 101.25 -> BUY (uptrend, low volatility)")
	assert.Contains(t, out, "DATE")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.Fields(lines[len(lines)-1])
	assert.Equal(t, []string{"2024-03-05", "102.00", "-", "-", "-", "-", "-", "-", "HOLD", "0"}, last)
}

func TestRenderComparison(t *testing.T) {
	a := sampleAnalysis()
	cmp := &usecase.ProfileComparison{
		Symbol:   "AAPL",
		Forecast: a.Forecast,
		Signals: map[models.RiskProfile][]models.Signal{
			models.ProfileConservative: {{Decision: models.DecisionHold, Score: 3}},
			models.ProfileModerate:     {{Decision: models.DecisionBuy, Score: 3}},
			models.ProfileAggressive:   {{Decision: models.DecisionBuy, Score: 3}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, renderComparison(&buf, cmp))
	out := buf.String()
	assert.Contains(t, out, "HOLD (+3)")
	assert.Contains(t, out, "conservative")
	assert.Contains(t, out, "BUY (+3)")
}
