package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"FinCast/internal/domain/models"
	"FinCast/internal/usecase"
	"FinCast/pkg/util"
)

func newBacktestCmd(root *rootOptions) *cobra.Command {
	var (
		data     dataFlags
		run      runFlags
		testDays int
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Forecast the last days of history and score the result",
		Long: `Backtest hides the last --test-days closes, forecasts them from the
remaining history and reports RMSE, MAPE, directional accuracy and the Sharpe
ratio of the forecast path.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			base, err := root.baseRunConfig()
			if err != nil {
				return err
			}
			cfg, err := run.apply(cmd, base)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("test-days") {
				testDays = cfg.BacktestDays
			}
			svc, err := root.analysisService(&data)
			if err != nil {
				return err
			}
			res, err := svc.Backtest(cmd.Context(), usecase.AnalysisRequest{
				Symbol:   data.symbolName(),
				Lookback: data.lookback,
				Config:   cfg,
			}, testDays)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return renderBacktest(cmd.OutOrStdout(), res)
		},
	}
	data.register(cmd)
	run.register(cmd)
	cmd.Flags().IntVar(&testDays, "test-days", 30, "number of held-out days")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func renderBacktest(w io.Writer, res *models.BacktestResult) error {
	fmt.Fprintf(w, "%s backtest: trained to %s, tested %s..%s (%d days)\n",
		res.Symbol, util.FormatDate(res.TrainEnd), util.FormatDate(res.TestStart), util.FormatDate(res.TestEnd), res.TestDays)
	for _, d := range res.Degradations {
		fmt.Fprintf(w, "warning: %s unavailable: %s\n", d.Component, d.Reason)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "RMSE\t%.4f\n", res.RMSE)
	fmt.Fprintf(tw, "MAPE\t%.2f%%\n", res.MAPE)
	fmt.Fprintf(tw, "Directional accuracy\t%.2f%%\n", res.DirectionalAccuracy)
	fmt.Fprintf(tw, "Sharpe\t%.4f\n", res.Sharpe)
	return tw.Flush()
}
