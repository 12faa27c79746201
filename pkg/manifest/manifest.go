// Package manifest provides loading and validation of rxnet run
// manifests.
//
// A run manifest is a YAML or JSON file describing one reaction set: the
// fixed reactant structures, the candidate product sets to pair them
// with, and the calculation parameters for the resulting jobs.
//
// Example manifest (YAML):
//
//	version: "1.0"
//	reaction:
//	  reactants:
//	    - "CC(C)O[O]"
//	  product_sets:
//	    - ["CC(C)=O", "[OH]"]
//	    - ["C=C(C)OO"]
//	calculation:
//	  functional: WB97X-3C
//	  processors: 8
//	  memory_mb: 1000
package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// Manifest represents a validated run manifest.
type Manifest struct {
	// Version is the manifest schema version. Must be "1.0".
	Version string `json:"version" yaml:"version"`

	// Reaction names the reactant set and the candidate product sets.
	Reaction ReactionConfig `json:"reaction" yaml:"reaction"`

	// Calculation configures the per-node jobs (optional).
	Calculation CalculationConfig `json:"calculation,omitempty" yaml:"calculation,omitempty"`

	// Harvest configures result extraction (optional).
	Harvest HarvestConfig `json:"harvest,omitempty" yaml:"harvest,omitempty"`
}

// ReactionConfig is the structural input of the run.
type ReactionConfig struct {
	// Reactants are serialized structural inputs (one encoding each).
	Reactants []string `json:"reactants" yaml:"reactants"`

	// ProductSets are candidate product hypotheses. Each set is paired
	// against the full reactant set.
	ProductSets [][]string `json:"product_sets" yaml:"product_sets"`
}

// CalculationConfig overrides the default job parameters.
type CalculationConfig struct {
	BaseName     string `json:"base_name,omitempty" yaml:"base_name,omitempty"`
	Multiplicity int    `json:"multiplicity,omitempty" yaml:"multiplicity,omitempty"`
	Functional   string `json:"functional,omitempty" yaml:"functional,omitempty"`
	Basis        string `json:"basis,omitempty" yaml:"basis,omitempty"`
	Blocks       string `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Processors   int    `json:"processors,omitempty" yaml:"processors,omitempty"`
	MemoryMB     int    `json:"memory_mb,omitempty" yaml:"memory_mb,omitempty"`
	ScratchGiB   int    `json:"lscratch_gib,omitempty" yaml:"lscratch_gib,omitempty"`
	TimeLimit    string `json:"time_limit,omitempty" yaml:"time_limit,omitempty"`
}

// HarvestConfig selects which records a harvest pass touches.
type HarvestConfig struct {
	// Pattern is a glob over identifiers. Default "**" (everything).
	Pattern string `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

const supportedVersion = "1.0"

// ApplyDefaults fills optional fields with their defaults.
func (m *Manifest) ApplyDefaults() {
	c := &m.Calculation
	if c.BaseName == "" {
		c.BaseName = "calc"
	}
	if c.Multiplicity == 0 {
		c.Multiplicity = 1
	}
	if c.Processors == 0 {
		c.Processors = 8
	}
	if c.MemoryMB == 0 {
		c.MemoryMB = 1000
	}
	if c.ScratchGiB == 0 {
		c.ScratchGiB = 20
	}
	if c.TimeLimit == "" {
		c.TimeLimit = "04:00:00"
	}
	if m.Harvest.Pattern == "" {
		m.Harvest.Pattern = "**"
	}
}

// Validate checks structural requirements before a run starts.
func (m *Manifest) Validate() error {
	var errs []error

	if m.Version != supportedVersion {
		errs = append(errs, fmt.Errorf("unsupported manifest version %q (want %q)", m.Version, supportedVersion))
	}
	if len(m.Reaction.Reactants) == 0 {
		errs = append(errs, errors.New("reaction.reactants must list at least one structure"))
	}
	for i, r := range m.Reaction.Reactants {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, fmt.Errorf("reaction.reactants[%d] is empty", i))
		}
	}
	if len(m.Reaction.ProductSets) == 0 {
		errs = append(errs, errors.New("reaction.product_sets must list at least one candidate set"))
	}
	for i, set := range m.Reaction.ProductSets {
		if len(set) == 0 {
			errs = append(errs, fmt.Errorf("reaction.product_sets[%d] is empty", i))
		}
		for j, p := range set {
			if strings.TrimSpace(p) == "" {
				errs = append(errs, fmt.Errorf("reaction.product_sets[%d][%d] is empty", i, j))
			}
		}
	}
	if m.Calculation.Processors < 0 || m.Calculation.MemoryMB < 0 {
		errs = append(errs, errors.New("calculation resources must be non-negative"))
	}

	return errors.Join(errs...)
}
