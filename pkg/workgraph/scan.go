package workgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/amechx/rxnet/pkg/chem"
)

// BohrToAngstrom converts the toolkit's internal length unit to angstrom.
const BohrToAngstrom = 0.529177

const (
	formingOrderTag  = 0.1
	breakingOrderTag = 0.9
	orderTagTol      = 0.05

	scanStepMatched   = 0.7
	scanStepUnmatched = 2.0
	scanStepCount     = 100
)

// deriveScans classifies a transition's bonds into forming and breaking
// sets and emits one scan directive per breaking bond / forming bond
// match (one-shared-atom rule), or a wider fallback scan over the
// breaking bond itself when no forming bond qualifies. A breaking bond
// matching several forming bonds yields one directive per match.
func (b *Builder) deriveScans(ctx context.Context, ts chem.TransitionStructure) ([]ScanDirective, error) {
	orders, err := b.toolkit.BondOrders(ctx, ts.Graph)
	if err != nil {
		return nil, err
	}

	var forming, breaking []chem.Bond
	for bond, order := range orders {
		switch {
		case near(order, formingOrderTag):
			forming = append(forming, normalize(bond))
		case near(order, breakingOrderTag):
			breaking = append(breaking, normalize(bond))
		}
	}
	if len(breaking) == 0 {
		return nil, fmt.Errorf("transition has no breaking bond")
	}
	sortBonds(forming)
	sortBonds(breaking)

	dmat, err := b.toolkit.DistanceMatrix(ctx, ts.Geometry)
	if err != nil {
		return nil, err
	}

	var scans []ScanDirective
	for _, broken := range breaking {
		a, bb := broken.A, broken.B

		matched := false
		for _, formed := range forming {
			shared, ok := broken.Shared(formed)
			if !ok {
				continue
			}
			c := formed.Other(shared)
			dist, err := distance(dmat, bb, c)
			if err != nil {
				return nil, err
			}
			scans = append(scans, ScanDirective{
				AtomA: bb,
				AtomB: c,
				Start: dist * BohrToAngstrom,
				Step:  scanStepMatched,
				Count: scanStepCount,
			})
			matched = true
		}

		if !matched {
			dist, err := distance(dmat, a, bb)
			if err != nil {
				return nil, err
			}
			scans = append(scans, ScanDirective{
				AtomA: a,
				AtomB: bb,
				Start: dist * BohrToAngstrom,
				Step:  scanStepUnmatched,
				Count: scanStepCount,
			})
		}
	}
	return scans, nil
}

func near(order, tag float64) bool {
	d := order - tag
	return d >= -orderTagTol && d <= orderTagTol
}

func normalize(b chem.Bond) chem.Bond {
	if b.A > b.B {
		return chem.Bond{A: b.B, B: b.A}
	}
	return b
}

// sortBonds fixes iteration order so directive emission is deterministic
// regardless of map ordering in the toolkit response.
func sortBonds(bonds []chem.Bond) {
	sort.Slice(bonds, func(i, j int) bool {
		if bonds[i].A != bonds[j].A {
			return bonds[i].A < bonds[j].A
		}
		return bonds[i].B < bonds[j].B
	})
}

func distance(dmat [][]float64, i, j int) (float64, error) {
	if i < 0 || j < 0 || i >= len(dmat) || j >= len(dmat[i]) {
		return 0, fmt.Errorf("distance matrix has no entry for atoms %d,%d", i, j)
	}
	return dmat[i][j], nil
}
