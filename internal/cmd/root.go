// Package cmd implements the rxnet command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amechx/rxnet/internal/config"
	"github.com/amechx/rxnet/internal/observability"
)

var (
	cfgFile  string
	logLevel string

	appConfig *config.Config
)

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{Version: "dev", Commit: "HEAD", BuildDate: "unknown"}

var rootCmd = &cobra.Command{
	Use:   "rxnet",
	Short: "Reaction network computation pipeline",
	Long: `rxnet turns candidate chemical reactions into a persisted, deduplicated
network of computational work items, drives a cluster scheduler to
compute each item exactly once, and harvests numeric results from the
calculation logs as they complete.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Context(), cfgFile)
		if err != nil {
			return err
		}
		appConfig = cfg

		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		return observability.Init(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default ./rxnet.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug|info|warn|error)")
}

// SetVersionInfo records build metadata injected by the linker.
func SetVersionInfo(version, commit, buildDate string) {
	if version != "" {
		versionInfo.Version = version
	}
	if commit != "" {
		versionInfo.Commit = commit
	}
	if buildDate != "" {
		versionInfo.BuildDate = buildDate
	}
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)",
		versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)
}

// Execute runs the CLI with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	return rootCmd.ExecuteContext(ctx)
}
