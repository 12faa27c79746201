package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amechx/rxnet/internal/observability"
	"github.com/amechx/rxnet/pkg/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or migrate the network database",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := store.Open(ctx, store.Config{Path: appConfig.DatabasePath})
	if err != nil {
		return err
	}
	defer st.Close()

	if err := store.Migrate(ctx, st); err != nil {
		return err
	}

	observability.CLILogger.Info("database ready",
		zap.String("path", appConfig.DatabasePath),
		zap.Int("schema_version", store.SchemaVersion))
	fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", appConfig.DatabasePath)
	return nil
}
