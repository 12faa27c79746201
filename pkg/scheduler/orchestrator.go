package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BatchReport summarizes a drained batch so callers can tell which
// identifiers actually completed.
type BatchReport struct {
	Submitted int
	Completed []string
	// Failed maps identifiers to failure reasons. It includes jobs that
	// were never submitted because a predecessor failed.
	Failed map[string]string
}

// Orchestrator walks a job batch in dependency order: a job moves
// Pending -> Submitted only once every declared predecessor has reached
// Completed (immediately when none are declared). Allocation pools are
// requested, deduplicated, before the job that needs them is submitted.
//
// Individual job failures are recorded, not retried; they only hold back
// the failed job's dependents. The orchestrator always drains the whole
// submitted batch before returning. Cancelling ctx abandons the wait and
// returns the partial report alongside the context error.
type Orchestrator struct {
	backend   Backend
	allocator *Allocator
	logger    *zap.Logger
}

func NewOrchestrator(backend Backend, allocator *Allocator, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{backend: backend, allocator: allocator, logger: logger}
}

// RunBatch submits the jobs and blocks until every one of them reaches a
// terminal state.
func (o *Orchestrator) RunBatch(ctx context.Context, jobs []Job) (*BatchReport, error) {
	report := &BatchReport{Failed: map[string]string{}}
	if len(jobs) == 0 {
		return report, nil
	}

	states := make(map[string]JobState, len(jobs))
	handles := make(map[string]Handle, len(jobs))
	byID := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		if _, dup := byID[j.Identifier]; dup {
			return nil, fmt.Errorf("duplicate job identifier %s", j.Identifier)
		}
		byID[j.Identifier] = j
		states[j.Identifier] = JobStatePending
	}

	for {
		if err := ctx.Err(); err != nil {
			o.fillReport(report, states)
			return report, err
		}

		ready := o.readyJobs(jobs, states, byID)
		if len(ready) == 0 {
			// Remaining pending jobs all sit behind a failure.
			o.failBlocked(states, byID, report)
			break
		}

		wave := make([]Handle, 0, len(ready))
		waveIDs := make(map[Handle]string, len(ready))
		for _, job := range ready {
			if err := o.allocator.Ensure(ctx, job.Alloc); err != nil {
				o.fillReport(report, states)
				return report, err
			}

			preds := make([]Handle, 0, len(job.Predecessors))
			for _, p := range job.Predecessors {
				if h, ok := handles[p]; ok {
					preds = append(preds, h)
				}
			}

			handle, err := o.backend.Submit(ctx, job, preds)
			if err != nil {
				o.fillReport(report, states)
				return report, err
			}
			states[job.Identifier] = JobStateSubmitted
			handles[job.Identifier] = handle
			report.Submitted++
			wave = append(wave, handle)
			waveIDs[handle] = job.Identifier
			o.logger.Info("submitted job",
				zap.String("identifier", job.Identifier),
				zap.String("handle", string(handle)),
				zap.Int("cpus", job.CPUs),
				zap.Int("mem_mib", job.MemMiB))
		}

		results, err := o.backend.Wait(ctx, wave)
		if err != nil {
			o.fillReport(report, states)
			return report, err
		}
		for _, res := range results {
			id := waveIDs[res.Handle]
			if res.Failed {
				states[id] = JobStateFailed
				report.Failed[id] = res.Reason
				o.logger.Warn("job failed",
					zap.String("identifier", id),
					zap.String("reason", res.Reason))
			} else {
				states[id] = JobStateCompleted
				report.Completed = append(report.Completed, id)
			}
		}
	}

	return report, nil
}

// readyJobs returns pending jobs whose predecessors have all completed.
// Predecessors without a job in this batch count as satisfied.
func (o *Orchestrator) readyJobs(jobs []Job, states map[string]JobState, byID map[string]Job) []Job {
	var ready []Job
	for _, job := range jobs {
		if states[job.Identifier] != JobStatePending {
			continue
		}
		ok := true
		for _, p := range job.Predecessors {
			if _, inBatch := byID[p]; !inBatch {
				continue
			}
			if states[p] != JobStateCompleted {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, job)
		}
	}
	return ready
}

// failBlocked marks still-pending jobs (those behind a failed
// predecessor) as failed without submitting them.
func (o *Orchestrator) failBlocked(states map[string]JobState, byID map[string]Job, report *BatchReport) {
	for id, st := range states {
		if st != JobStatePending {
			continue
		}
		states[id] = JobStateFailed
		reason := "predecessor failed"
		for _, p := range byID[id].Predecessors {
			if states[p] == JobStateFailed {
				reason = fmt.Sprintf("predecessor %s failed", p)
				break
			}
		}
		report.Failed[id] = reason
	}
}

func (o *Orchestrator) fillReport(report *BatchReport, states map[string]JobState) {
	for id, st := range states {
		switch st {
		case JobStatePending, JobStateSubmitted, JobStateRunning:
			if _, seen := report.Failed[id]; !seen {
				report.Failed[id] = "not completed: " + string(st)
			}
		}
	}
}
