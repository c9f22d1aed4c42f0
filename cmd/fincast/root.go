package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"FinCast/internal/domain/models"
	"FinCast/internal/repository"
	"FinCast/internal/usecase"
	"FinCast/pkg/config"
	applogger "FinCast/pkg/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string

	cfg *config.Config
	l   *applogger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "fincast",
		Short: "Ensemble price forecasting with risk-profiled trading signals",
		Long: `FinCast forecasts daily closing prices with an ensemble of trend,
regression and volatility models and turns the forecast into BUY, HOLD or
SELL signals for a risk profile.

Examples:
  fincast forecast --csv aapl.csv --n-future 10 --profile moderate
  fincast forecast --csv aapl.csv --compare
  fincast backtest --csv aapl.csv --test-days 30
  fincast risk --answers 2,3,2,1`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "optional YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(
		newForecastCmd(opts),
		newBacktestCmd(opts),
		newRiskCmd(opts),
		newImportCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load(stderr io.Writer) error {
	cfg, err := config.LoadWithEnv(o.configPath)
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	o.cfg = cfg
	o.l = applogger.NewWriter(zerolog.ConsoleWriter{Out: stderr, TimeFormat: "15:04:05"}, level)
	return nil
}

// dataFlags select the price history.
type dataFlags struct {
	csv      string
	symbol   string
	lookback int
}

func (d *dataFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.csv, "csv", "", "daily price CSV with date and close columns")
	cmd.Flags().StringVar(&d.symbol, "symbol", "", "symbol name (default: CSV file name)")
	cmd.Flags().IntVar(&d.lookback, "lookback", 0, "number of most recent bars to use (default from config)")
	_ = cmd.MarkFlagRequired("csv")
}

func (d *dataFlags) symbolName() string {
	if d.symbol != "" {
		return strings.ToUpper(strings.TrimSpace(d.symbol))
	}
	base := filepath.Base(d.csv)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

// runFlags override the forecast section of the config when set.
type runFlags struct {
	horizon  int
	window   int
	profile  string
	tsWeight float64
	mlWeight float64
}

func (r *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&r.horizon, "n-future", "n", 10, "business days to forecast")
	cmd.Flags().IntVar(&r.window, "window", 30, "lag window for the regression models")
	cmd.Flags().StringVarP(&r.profile, "profile", "p", "moderate", "risk profile: conservative, moderate, aggressive")
	cmd.Flags().Float64Var(&r.tsWeight, "ts-weight", 0.8, "weight of the trend ensemble")
	cmd.Flags().Float64Var(&r.mlWeight, "ml-weight", 0.2, "weight of the regression ensemble")
}

// apply overlays changed flags on base. Setting one weight alone sets the
// other to its complement.
func (r *runFlags) apply(cmd *cobra.Command, base models.RunConfig) (models.RunConfig, error) {
	fs := cmd.Flags()
	if fs.Changed("n-future") {
		base.Horizon = r.horizon
	}
	if fs.Changed("window") {
		base.WindowSize = r.window
	}
	if fs.Changed("profile") {
		p, err := models.ParseRiskProfile(r.profile)
		if err != nil {
			return base, err
		}
		base.RiskProfile = p
	}
	ts, ml := fs.Changed("ts-weight"), fs.Changed("ml-weight")
	switch {
	case ts && ml:
		base.TSWeight, base.MLWeight = r.tsWeight, r.mlWeight
	case ts:
		base.TSWeight, base.MLWeight = r.tsWeight, 1-r.tsWeight
	case ml:
		base.TSWeight, base.MLWeight = 1-r.mlWeight, r.mlWeight
	}
	return base, nil
}

func (o *rootOptions) baseRunConfig() (models.RunConfig, error) {
	return o.cfg.Forecast.RunConfig()
}

// analysisService loads the CSV into memory and builds the full pipeline over it.
func (o *rootOptions) analysisService(d *dataFlags) (*usecase.AnalysisService, error) {
	store := repository.NewCSVPriceStore()
	if err := store.LoadFile(d.symbolName(), d.csv); err != nil {
		return nil, err
	}
	f := usecase.NewForecastUseCase(usecase.WithCombinerLogger(o.l))
	return usecase.NewAnalysisService(store, f,
		usecase.WithDefaultLookback(o.cfg.Forecast.Lookback),
		usecase.WithAnalysisLogger(o.l),
	), nil
}
