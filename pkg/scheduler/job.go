package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// JobState is the lifecycle state of one submitted work item.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateSubmitted JobState = "submitted"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Job is one unit of submitted work: a working directory, a command, a
// resource request, and the identifiers of jobs that must complete
// before it may start.
type Job struct {
	// Identifier is the node identifier this job computes.
	Identifier string

	// WorkDir is the node's working directory.
	WorkDir string

	// Script is the submit script file name inside WorkDir.
	Script string

	// CPUs is the processor request, passed through unchanged.
	CPUs int

	// MemMiB is the memory request in binary MiB.
	MemMiB int

	// Alloc is the pool specification this job runs under.
	Alloc AllocSpec

	// Predecessors are identifiers of jobs in the same batch that must
	// reach Completed first. Identifiers with no job in the batch are
	// treated as already satisfied.
	Predecessors []string
}

// StdoutPath and StderrPath name the captured streams in WorkDir.
func (j Job) StdoutPath() string { return filepath.Join(j.WorkDir, "stdout.log") }
func (j Job) StderrPath() string { return filepath.Join(j.WorkDir, "stderr.log") }

// Handle identifies a submitted job at the scheduler.
type Handle string

// Result is the terminal outcome of one submitted job.
type Result struct {
	Handle Handle
	Failed bool
	Reason string
}

// Backend is the boundary to the external scheduler.
type Backend interface {
	// Submit hands one job to the scheduler and returns its handle.
	// Predecessor handles are declared so the scheduler enforces
	// ordering on its side as well.
	Submit(ctx context.Context, job Job, predecessors []Handle) (Handle, error)

	// Wait blocks until every handle reaches a terminal state.
	Wait(ctx context.Context, handles []Handle) ([]Result, error)
}

// HQBackend submits jobs through the scheduler CLI.
type HQBackend struct {
	Binary string
	Runner Runner
}

func NewHQBackend(binary string, runner Runner) *HQBackend {
	if binary == "" {
		binary = defaultBinary
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &HQBackend{Binary: binary, Runner: runner}
}

func (b *HQBackend) Submit(ctx context.Context, job Job, predecessors []Handle) (Handle, error) {
	args := []string{
		"submit",
		"--cwd", job.WorkDir,
		fmt.Sprintf("--cpus=%d", job.CPUs),
		fmt.Sprintf("--resource=mem=%d", job.MemMiB),
		"--stdout", job.StdoutPath(),
		"--stderr", job.StderrPath(),
	}
	for _, dep := range predecessors {
		args = append(args, "--after", string(dep))
	}
	args = append(args, "--", "bash", job.Script)

	out, err := b.Runner.Run(ctx, b.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", job.Identifier, err)
	}
	handle, err := parseJobID(string(out))
	if err != nil {
		return "", fmt.Errorf("submit %s: %w", job.Identifier, err)
	}
	return handle, nil
}

func (b *HQBackend) Wait(ctx context.Context, handles []Handle) ([]Result, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		ids = append(ids, string(h))
	}
	// job wait exits non-zero when any waited job failed. That still
	// means every job reached a terminal state; per-job outcomes come
	// from the info dumps below, and a genuinely dead scheduler fails
	// those instead.
	_, _ = b.Runner.Run(ctx, b.Binary, "job", "wait", strings.Join(ids, ","))

	results := make([]Result, 0, len(handles))
	for _, h := range handles {
		out, err := b.Runner.Run(ctx, b.Binary, "job", "info", string(h))
		if err != nil {
			return nil, fmt.Errorf("job info %s: %w", h, err)
		}
		res := Result{Handle: h}
		if state, ok := parseJobState(string(out)); ok && state != "FINISHED" {
			res.Failed = true
			res.Reason = "job state " + state
		}
		results = append(results, res)
	}
	return results, nil
}

// parseJobID pulls the numeric job id out of the submit output
// ("Job submitted successfully, job ID: 42").
func parseJobID(out string) (Handle, error) {
	fields := strings.Fields(out)
	for i := len(fields) - 1; i >= 0; i-- {
		token := strings.Trim(fields[i], ",.")
		if _, err := strconv.Atoi(token); err == nil {
			return Handle(token), nil
		}
	}
	return "", fmt.Errorf("no job id in output %q", strings.TrimSpace(out))
}

// parseJobState finds the "State: X" line of a job info dump.
func parseJobState(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "State:"); ok {
			return strings.ToUpper(strings.TrimSpace(rest)), true
		}
	}
	return "", false
}

var _ Backend = (*HQBackend)(nil)
