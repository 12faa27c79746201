package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amechx/rxnet/internal/observability"
	"github.com/amechx/rxnet/pkg/calc"
	"github.com/amechx/rxnet/pkg/chem"
	"github.com/amechx/rxnet/pkg/harvest"
	"github.com/amechx/rxnet/pkg/manifest"
	"github.com/amechx/rxnet/pkg/report"
	"github.com/amechx/rxnet/pkg/runlog"
	"github.com/amechx/rxnet/pkg/scheduler"
	"github.com/amechx/rxnet/pkg/store"
	"github.com/amechx/rxnet/pkg/workgraph"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline from a manifest",
	Long: `Run the full pipeline for one reaction set: enumerate the work graph,
reconcile it against the network database, submit jobs for newly
discovered nodes, and harvest whatever results are already on disk.

Example:
  rxnet run --job reaction.yaml
  rxnet run --job reaction.yaml --output report.jsonl
  rxnet run --job reaction.yaml --no-submit`,
	RunE: runRun,
}

var (
	runJobPath   string
	runOutput    string
	runNoSubmit  bool
	runNoHarvest bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runJobPath, "job", "j", "", "Path to run manifest (required)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Write JSONL report to file instead of stdout")
	runCmd.Flags().BoolVar(&runNoSubmit, "no-submit", false, "Reconcile only; do not submit jobs")
	runCmd.Flags().BoolVar(&runNoHarvest, "no-harvest", false, "Skip the harvest pass")

	_ = runCmd.MarkFlagRequired("job")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := observability.CLILogger
	started := time.Now()

	m, err := manifest.Load(runJobPath)
	if err != nil {
		logger.Error("Failed to load manifest", zap.String("path", runJobPath), zap.Error(err))
		return err
	}
	logger.Debug("Loaded manifest",
		zap.String("path", runJobPath),
		zap.Int("reactants", len(m.Reaction.Reactants)),
		zap.Int("product_sets", len(m.Reaction.ProductSets)))

	st, err := store.Open(ctx, store.Config{Path: appConfig.DatabasePath})
	if err != nil {
		return err
	}
	defer st.Close()
	if err := store.Migrate(ctx, st); err != nil {
		return err
	}

	runs := runlog.NewStore(filepath.Join(appConfig.DataRoot, "runs"))
	runID := runlog.NewRunID()
	absManifest, _ := filepath.Abs(runJobPath)
	runRec := &runlog.RunRecord{
		RunID:        runID,
		State:        runlog.RunStateRunning,
		ManifestPath: absManifest,
		CreatedAt:    time.Now().UTC(),
	}
	if err := runs.Write(runRec); err != nil {
		return err
	}
	finish := func(state runlog.RunState) {
		now := time.Now().UTC()
		runRec.State = state
		runRec.EndedAt = &now
		if err := runs.Write(runRec); err != nil {
			logger.Warn("Failed to persist run record", zap.Error(err))
		}
	}

	var out io.Writer = cmd.OutOrStdout()
	if runOutput != "" {
		f, err := os.Create(runOutput)
		if err != nil {
			finish(runlog.RunStateFailed)
			return fmt.Errorf("create report output: %w", err)
		}
		defer f.Close()
		out = f
	}
	rep := report.NewWriter(out, runID)

	// Stage 1: enumerate the work graph.
	toolkit := chem.NewExecToolkit(appConfig.Toolkit.Binary)
	graph, err := workgraph.NewBuilder(toolkit, logger).Build(ctx, m.Reaction.Reactants, m.Reaction.ProductSets)
	if err != nil {
		logger.Error("Graph build failed", zap.Error(err))
		finish(runlog.RunStateFailed)
		return err
	}

	// Stage 2: reconcile against the store.
	result, err := st.Reconcile(ctx, graph, appConfig.DataRoot)
	if err != nil {
		logger.Error("Reconciliation failed", zap.Error(err))
		finish(runlog.RunStateFailed)
		return err
	}
	runRec.NewNodes = len(result.New)
	for _, identifier := range result.New {
		if err := rep.WriteDiscovery(identifier, string(result.Roles[identifier])); err != nil {
			finish(runlog.RunStateFailed)
			return err
		}
	}
	logger.Info("Reconciled work graph",
		zap.Int("nodes", len(graph.Nodes())),
		zap.Int("new", len(result.New)))

	params := paramsFromManifest(m.Calculation)
	failedJobs := 0

	// Stage 3: submit new work.
	if !runNoSubmit && len(result.New) > 0 {
		batch, err := submitBatch(cmd, result, graph, params, rep)
		if err != nil {
			finish(runlog.RunStateFailed)
			return err
		}
		runRec.JobsSubmitted = batch.Submitted
		runRec.JobsFailed = len(batch.Failed)
		failedJobs = len(batch.Failed)
	}

	// Stage 4: harvest whatever results exist.
	parseErrs := error(nil)
	if !runNoHarvest {
		h := harvest.New(st, appConfig.DataRoot, logger)
		h.Pattern = m.Harvest.Pattern
		summary, err := h.Run(ctx)
		if summary != nil {
			runRec.FieldsSet = summary.FieldsSet
			runRec.Ambiguous = summary.Ambiguous
			if werr := rep.WriteHarvest(summary.Scanned, summary.Updated, summary.FieldsSet,
				summary.Ambiguous, summary.ParseErrors); werr != nil {
				finish(runlog.RunStateFailed)
				return werr
			}
		}
		if err != nil {
			// Parse errors mean a log-format assumption broke; surface
			// them after the full pass instead of aborting mid-scan.
			logger.Error("Harvest reported parse errors", zap.Error(err))
			parseErrs = err
		}
	}

	if err := rep.WriteSummary(report.SummaryRecord{
		NewNodes:      runRec.NewNodes,
		JobsSubmitted: runRec.JobsSubmitted,
		JobsFailed:    runRec.JobsFailed,
		FieldsSet:     runRec.FieldsSet,
		Ambiguous:     runRec.Ambiguous,
		DurationMS:    time.Since(started).Milliseconds(),
	}); err != nil {
		finish(runlog.RunStateFailed)
		return err
	}

	switch {
	case parseErrs != nil:
		finish(runlog.RunStatePartial)
		return parseErrs
	case failedJobs > 0:
		finish(runlog.RunStatePartial)
	default:
		finish(runlog.RunStateSuccess)
	}
	return nil
}

// submitBatch writes calculation inputs for every new node, brings the
// scheduler server up, and drains the job batch.
func submitBatch(cmd *cobra.Command, result *store.Result, graph *workgraph.Graph, params calc.Params, rep *report.Writer) (*scheduler.BatchReport, error) {
	ctx := cmd.Context()
	logger := observability.CLILogger

	for _, identifier := range result.New {
		if err := calc.WriteInputs(store.WorkDir(appConfig.DataRoot, identifier), params); err != nil {
			return nil, fmt.Errorf("write inputs for %s: %w", identifier, err)
		}
	}

	srv := scheduler.NewServer(appConfig.Scheduler.ServerDir, appConfig.Scheduler.Binary, nil, logger)
	srv.ReadyAttempts = appConfig.Scheduler.ReadyAttempts
	srv.ReadyInterval = appConfig.Scheduler.ReadyInterval
	if err := srv.EnsureStarted(ctx); err != nil {
		logger.Error("Scheduler server startup failed", zap.Error(err))
		return nil, err
	}

	allocator := scheduler.NewAllocator(appConfig.Scheduler.Binary, nil, logger)
	backend := scheduler.NewHQBackend(appConfig.Scheduler.Binary, nil)
	orch := scheduler.NewOrchestrator(backend, allocator, logger)

	jobs := buildJobs(result, graph, appConfig.DataRoot, params)
	batch, err := orch.RunBatch(ctx, jobs)
	if batch != nil {
		for _, identifier := range batch.Completed {
			if werr := rep.WriteSubmission(identifier, false, ""); werr != nil {
				return nil, werr
			}
		}
		for identifier, reason := range batch.Failed {
			if werr := rep.WriteSubmission(identifier, true, reason); werr != nil {
				return nil, werr
			}
		}
	}
	if err != nil {
		logger.Error("Batch did not drain cleanly", zap.Error(err))
		return batch, err
	}

	logger.Info("Batch complete",
		zap.Int("submitted", batch.Submitted),
		zap.Int("completed", len(batch.Completed)),
		zap.Int("failed", len(batch.Failed)))
	return batch, nil
}
