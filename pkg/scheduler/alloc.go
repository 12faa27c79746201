package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// AllocSpec is the canonical key for one cluster allocation pool. Specs
// are compared as values, so two jobs with identical resource needs map
// to the same pool regardless of how the request happens to be rendered.
type AllocSpec struct {
	TimeLimit  string
	CPUs       int
	MemMiB     int
	ScratchGiB int
	MemPerCPU  int // decimal MB, forwarded to the workload manager
}

func (a AllocSpec) String() string {
	return fmt.Sprintf("time=%s cpus=%d mem=%dMiB scratch=%dGiB", a.TimeLimit, a.CPUs, a.MemMiB, a.ScratchGiB)
}

// args renders the pool request command line.
func (a AllocSpec) args() []string {
	return []string{
		"alloc", "add", "slurm",
		"--time-limit", a.TimeLimit,
		fmt.Sprintf("--cpus=%d", a.CPUs),
		fmt.Sprintf("--resource=mem=sum(%d)", a.MemMiB),
		"--",
		"--partition=batch",
		fmt.Sprintf("--ntasks=%d", a.CPUs),
		fmt.Sprintf("--mem-per-cpu=%d", a.MemPerCPU),
		fmt.Sprintf("--gres=lscratch:%d", a.ScratchGiB),
	}
}

// Allocator issues allocation-pool requests, at most once per spec per
// run. The scheduler itself does not dedupe, and pools are slow to
// provision, so duplicate requests are suppressed here. Dedup state is
// in-memory only and scoped to this Allocator's lifetime.
type Allocator struct {
	binary    string
	runner    Runner
	logger    *zap.Logger
	requested map[AllocSpec]struct{}
}

func NewAllocator(binary string, runner Runner, logger *zap.Logger) *Allocator {
	if binary == "" {
		binary = defaultBinary
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{
		binary:    binary,
		runner:    runner,
		logger:    logger,
		requested: map[AllocSpec]struct{}{},
	}
}

// Ensure requests the pool unless an identical spec was already
// requested in this run. A rejected request is fatal.
func (al *Allocator) Ensure(ctx context.Context, spec AllocSpec) error {
	if _, done := al.requested[spec]; done {
		return nil
	}

	al.logger.Info("requesting allocation pool", zap.String("spec", spec.String()))
	if _, err := al.runner.Run(ctx, al.binary, spec.args()...); err != nil {
		return &AllocationError{Spec: spec, Err: err}
	}
	al.requested[spec] = struct{}{}
	return nil
}

// Requested reports how many distinct pools this run has asked for.
func (al *Allocator) Requested() int {
	return len(al.requested)
}
