package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"FinCast/internal/domain/models"
	"FinCast/internal/handler/api"
	"FinCast/internal/usecase"
	"FinCast/pkg/util"
)

func newForecastCmd(root *rootOptions) *cobra.Command {
	var (
		data    dataFlags
		run     runFlags
		compare bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast prices and print the trading signals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := root.baseRunConfig()
			if err != nil {
				return err
			}
			cfg, err := run.apply(cmd, base)
			if err != nil {
				return err
			}
			svc, err := root.analysisService(&data)
			if err != nil {
				return err
			}
			req := usecase.AnalysisRequest{Symbol: data.symbolName(), Lookback: data.lookback, Config: cfg}
			out := cmd.OutOrStdout()

			if compare {
				cmp, err := svc.Compare(cmd.Context(), req)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, cmp)
				}
				return renderComparison(out, cmp)
			}

			a, err := svc.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, api.NewForecastResponse(a))
			}
			return renderAnalysis(out, a)
		},
	}
	data.register(cmd)
	run.register(cmd)
	cmd.Flags().BoolVar(&compare, "compare", false, "score the forecast under every risk profile")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func estimate(e models.Estimate) string {
	if !e.Valid {
		return "-"
	}
	return strconv.FormatFloat(e.Value, 'f', 2, 64)
}

func price(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func renderDegradations(w io.Writer, ft *models.ForecastTable) {
	if ft == nil {
		return
	}
	for _, d := range ft.Degradations {
		fmt.Fprintf(w, "warning: %s unavailable: %s\n", d.Component, d.Reason)
	}
}

func renderAnalysis(w io.Writer, a *models.Analysis) error {
	fmt.Fprintf(w, "%s  profile=%s  generated=%s\n", a.Symbol, a.Profile, a.GeneratedAt.Format("2006-01-02 15:04"))
	renderDegradations(w, a.Forecast)
	if nd, ok := a.NextDay(); ok {
		fmt.Fprintf(w, "next day %s: %s -> %s (%s)\n\n", util.FormatDate(nd.Date), price(nd.PredictedPrice), nd.Decision, nd.Rationale)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tFINAL\tTREND\tML\tLOWER\tUPPER\tVOL%\tCONF\tSIGNAL\tSCORE\tRATIONALE")
	for i, row := range a.Forecast.Rows {
		var sig models.Signal
		if i < len(a.Signals) {
			sig = a.Signals[i]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			util.FormatDate(row.Date),
			price(row.FinalEnsemble),
			estimate(row.TSEnsemble),
			estimate(row.MLEnsemble),
			estimate(row.Lower),
			estimate(row.Upper),
			estimate(row.Volatility),
			estimate(row.Confidence),
			sig.Decision,
			sig.Score,
			sig.RationaleText(),
		)
	}
	return tw.Flush()
}

func renderComparison(w io.Writer, cmp *usecase.ProfileComparison) error {
	fmt.Fprintf(w, "%s  profile comparison\n", cmp.Symbol)
	renderDegradations(w, cmp.Forecast)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "DATE\tFINAL")
	for _, p := range models.Profiles {
		fmt.Fprintf(tw, "\t%s", p)
	}
	fmt.Fprintln(tw)
	for i, row := range cmp.Forecast.Rows {
		fmt.Fprintf(tw, "%s\t%s", util.FormatDate(row.Date), price(row.FinalEnsemble))
		for _, p := range models.Profiles {
			sigs := cmp.Signals[p]
			if i < len(sigs) {
				fmt.Fprintf(tw, "\t%s (%+d)", sigs[i].Decision, sigs[i].Score)
			} else {
				fmt.Fprint(tw, "\t-")
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
