package calc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// seedGeometry must match the seed file the reconciler writes.
const seedGeometry = "guess.xyz"

const scriptHeader = `#!/bin/bash
set -euo pipefail
SUBMIT_DIR=$(pwd)
echo "SUBMITTED: $(date)"

SCRATCH_DIR="/lscratch/${USER}/${RANDOM}"
echo "SCRATCH_DIR: $SCRATCH_DIR"
echo "NODE: $(hostname)"

mkdir -p "$SCRATCH_DIR"
rsync -a "$SUBMIT_DIR/" "$SCRATCH_DIR/"
cd "$SCRATCH_DIR"

cleanup() {
    rsync -a "$SCRATCH_DIR/" "$SUBMIT_DIR/"
    rm -rf "$SCRATCH_DIR"
    cd "$SUBMIT_DIR"
}
trap cleanup EXIT

`

// WriteInputs renders the program input and the submit script into the
// working directory. The script stages the directory to node-local
// scratch, runs the program, and syncs results back on exit.
func WriteInputs(dir string, p Params) error {
	if strings.TrimSpace(p.BaseName) == "" {
		return fmt.Errorf("calc: base name is required")
	}

	var inp strings.Builder
	fmt.Fprintf(&inp, "%%PAL NPROCS %d END\n", p.Processors)
	fmt.Fprintf(&inp, "%%MaxCore %d\n", p.MemoryMB)
	fmt.Fprintf(&inp, "%%base %q\n", p.BaseName)
	keywords := strings.TrimSpace(p.Functional + " " + p.Basis)
	fmt.Fprintf(&inp, "! %s DEFGRID3 TightSCF SlowConv Opt NumFreq\n", keywords)
	if strings.TrimSpace(p.Blocks) != "" {
		inp.WriteString(strings.TrimRight(p.Blocks, "\n") + "\n")
	}
	fmt.Fprintf(&inp, "* xyzfile 0 %d %s\n", p.Multiplicity, seedGeometry)

	body := fmt.Sprintf("module load ORCA/6.1\n$(which orca) %s > \"$SUBMIT_DIR/%s\"\n",
		p.InputName(), p.LogName())

	if err := os.WriteFile(filepath.Join(dir, p.InputName()), []byte(inp.String()), 0644); err != nil {
		return fmt.Errorf("write input file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, p.ScriptName()), []byte(scriptHeader+body), 0755); err != nil {
		return fmt.Errorf("write submit script: %w", err)
	}
	return nil
}
