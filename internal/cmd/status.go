package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/amechx/rxnet/pkg/runlog"
	"github.com/amechx/rxnet/pkg/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database counts and recent runs",
	RunE:  runStatus,
}

var statusRuns int

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusRuns, "runs", 5, "Number of recent runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	st, err := store.Open(ctx, store.Config{Path: appConfig.DatabasePath})
	if err != nil {
		return err
	}
	defer st.Close()
	if err := store.Migrate(ctx, st); err != nil {
		return err
	}

	counts, err := st.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "stationaries: %d\ntransitions:  %d\nenergies:     %d\n",
		counts.Stationaries, counts.Transitions, counts.Energies)

	runs, err := runlog.NewStore(filepath.Join(appConfig.DataRoot, "runs")).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no recorded runs")
		return nil
	}

	fmt.Fprintln(out, "\nrecent runs:")
	for i, r := range runs {
		if i >= statusRuns {
			break
		}
		fmt.Fprintf(out, "  %s  %-8s  new=%d submitted=%d failed=%d fields=%d  %s\n",
			r.RunID[:8], r.State, r.NewNodes, r.JobsSubmitted, r.JobsFailed, r.FieldsSet,
			r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
