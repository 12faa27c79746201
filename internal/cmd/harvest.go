package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amechx/rxnet/internal/observability"
	"github.com/amechx/rxnet/pkg/harvest"
	"github.com/amechx/rxnet/pkg/store"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Extract energies from calculation logs",
	Long: `Scan the working directories of records lacking a complete energy
record and upsert whatever the logs contain. Safe to re-run at any
time: already-set fields are never overwritten and ambiguous logs are
skipped.`,
	RunE: runHarvest,
}

var harvestPattern string

func init() {
	rootCmd.AddCommand(harvestCmd)

	harvestCmd.Flags().StringVar(&harvestPattern, "pattern", "**", "Glob over identifiers to harvest")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := observability.CLILogger

	st, err := store.Open(ctx, store.Config{Path: appConfig.DatabasePath})
	if err != nil {
		return err
	}
	defer st.Close()
	if err := store.Migrate(ctx, st); err != nil {
		return err
	}

	h := harvest.New(st, appConfig.DataRoot, logger)
	h.Pattern = harvestPattern

	summary, err := h.Run(ctx)
	if summary != nil {
		fmt.Fprintf(cmd.OutOrStdout(),
			"scanned=%d updated=%d fields_set=%d ambiguous=%d parse_errors=%d\n",
			summary.Scanned, summary.Updated, summary.FieldsSet,
			summary.Ambiguous, summary.ParseErrors)
	}
	if err != nil {
		logger.Error("Harvest reported parse errors", zap.Error(err))
		return err
	}
	return nil
}
