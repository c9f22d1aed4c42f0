package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FinCast/internal/di"
	"FinCast/internal/repository"
	applogger "FinCast/pkg/logger"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	var data dataFlags
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a price CSV into ClickHouse",
		Long: `Import reads a daily price CSV and upserts it into the ClickHouse
price table used by the API server. Re-importing the same dates overwrites them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(data.csv)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()
			bars, err := repository.ReadCSV(f)
			if err != nil {
				return fmt.Errorf("%s: %w", data.csv, err)
			}

			ch, err := di.ProvideClickHouseClient(root.cfg)
			if err != nil {
				return err
			}
			defer ch.Close()

			symbol := data.symbolName()
			if err := repository.NewCHPriceStore(ch, root.l).StoreBars(cmd.Context(), symbol, bars); err != nil {
				return err
			}
			root.l.Info("prices imported", applogger.String("symbol", symbol), applogger.Int("bars", len(bars)))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d bars for %s\n", len(bars), symbol)
			return nil
		},
	}
	data.register(cmd)
	return cmd
}
