package cmd

import (
	"github.com/amechx/rxnet/pkg/calc"
	"github.com/amechx/rxnet/pkg/manifest"
	"github.com/amechx/rxnet/pkg/scheduler"
	"github.com/amechx/rxnet/pkg/store"
	"github.com/amechx/rxnet/pkg/workgraph"
)

func paramsFromManifest(c manifest.CalculationConfig) calc.Params {
	p := calc.DefaultParams()
	if c.BaseName != "" {
		p.BaseName = c.BaseName
	}
	if c.Multiplicity > 0 {
		p.Multiplicity = c.Multiplicity
	}
	p.Functional = c.Functional
	p.Basis = c.Basis
	p.Blocks = c.Blocks
	if c.Processors > 0 {
		p.Processors = c.Processors
	}
	if c.MemoryMB > 0 {
		p.MemoryMB = c.MemoryMB
	}
	if c.ScratchGiB > 0 {
		p.ScratchGiB = c.ScratchGiB
	}
	if c.TimeLimit != "" {
		p.TimeLimit = c.TimeLimit
	}
	return p
}

// buildJobs maps newly reconciled nodes onto scheduler jobs. Stationary
// jobs carry no predecessors; a transition job depends on its reactant
// jobs. Products are deliberately not modeled as depending on the
// transition: the execution graph only needs reactant results before a
// transition search starts.
func buildJobs(result *store.Result, graph *workgraph.Graph, dataRoot string, params calc.Params) []scheduler.Job {
	alloc := scheduler.AllocSpec{
		TimeLimit:  params.TimeLimit,
		CPUs:       params.Processors,
		MemMiB:     params.MemoryMiB(),
		ScratchGiB: params.ScratchGiB,
		MemPerCPU:  params.MemoryMB,
	}

	jobs := make([]scheduler.Job, 0, len(result.New))
	for _, identifier := range result.New {
		job := scheduler.Job{
			Identifier: identifier,
			WorkDir:    store.WorkDir(dataRoot, identifier),
			Script:     params.ScriptName(),
			CPUs:       params.Processors,
			MemMiB:     params.MemoryMiB(),
			Alloc:      alloc,
		}
		if result.Roles[identifier] == workgraph.RoleTransition {
			if node, ok := graph.Node(identifier); ok {
				if t, ok := node.(workgraph.Transition); ok {
					job.Predecessors = append([]string(nil), t.Reactants...)
				}
			}
		}
		jobs = append(jobs, job)
	}
	return jobs
}
