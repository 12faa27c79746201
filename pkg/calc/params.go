// Package calc renders quantum-chemistry input files and cluster submit
// scripts into node working directories, and carries the per-job
// resource parameters the orchestrator turns into scheduler requests.
package calc

import "math"

// mibPerMB converts a decimal-MB request into binary MiB.
const mibPerMB = 1.049

// Params are the per-node calculation and resource parameters.
type Params struct {
	// BaseName is the stem for input, script, and log files.
	BaseName string

	Multiplicity int
	Functional   string
	Basis        string

	// Blocks is extra %-block input spliced into the input file verbatim.
	Blocks string

	// Processors is passed through to the scheduler unchanged.
	Processors int

	// MemoryMB is the requested memory in decimal megabytes.
	MemoryMB int

	// ScratchGiB is the node-local scratch reservation.
	ScratchGiB int

	// TimeLimit is the allocation wall-clock limit (HH:MM:SS).
	TimeLimit string
}

// DefaultParams mirrors the pipeline's standing resource profile.
func DefaultParams() Params {
	return Params{
		BaseName:     "calc",
		Multiplicity: 1,
		Processors:   8,
		MemoryMB:     1000,
		ScratchGiB:   20,
		TimeLimit:    "04:00:00",
	}
}

// MemoryMiB is the scheduler-facing memory request.
func (p Params) MemoryMiB() int {
	return int(math.Ceil(float64(p.MemoryMB) / mibPerMB))
}

// InputName returns the rendered input file name.
func (p Params) InputName() string { return p.BaseName + ".inp" }

// ScriptName returns the rendered submit script name.
func (p Params) ScriptName() string { return p.BaseName + ".sh" }

// LogName returns the primary calculation log the program writes.
func (p Params) LogName() string { return p.BaseName + ".log" }
