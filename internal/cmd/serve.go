package cmd

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amechx/rxnet/internal/observability"
	"github.com/amechx/rxnet/internal/server"
	"github.com/amechx/rxnet/pkg/runlog"
	"github.com/amechx/rxnet/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only status API",
	RunE:  runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	addr := appConfig.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	runs := runlog.NewStore(filepath.Join(appConfig.DataRoot, "runs"))

	srv := server.New(addr, st, runs, appConfig.Server.RateLimit, logger)
	logger.Info("status API listening", zap.String("addr", addr))

	err = srv.ListenAndServe(ctx)
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
