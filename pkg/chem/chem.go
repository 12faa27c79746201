// Package chem defines the boundary to the external chemistry toolkit.
//
// The toolkit owns molecular perception: canonical identifiers, 3D
// geometry embedding, and transition-structure generation. This package
// does not reimplement any of that; it only shapes the calls the
// pipeline makes and the data it gets back.
package chem

import (
	"context"
	"fmt"
)

// Bond identifies a bond by its two atom indices.
type Bond struct {
	A int
	B int
}

func (b Bond) String() string {
	return fmt.Sprintf("%d-%d", b.A, b.B)
}

// Shared returns the atom the two bonds have in common and true when they
// share exactly one atom. Bonds sharing both atoms (the same bond) or no
// atom report false.
func (b Bond) Shared(other Bond) (int, bool) {
	shared := make([]int, 0, 2)
	for _, x := range []int{b.A, b.B} {
		if x == other.A || x == other.B {
			shared = append(shared, x)
		}
	}
	if len(shared) != 1 {
		return 0, false
	}
	return shared[0], true
}

// Other returns the bond's atom that is not x.
func (b Bond) Other(x int) int {
	if b.A == x {
		return b.B
	}
	return b.A
}

// TransitionStructure is one generated transition connecting a reactant
// set to a product set.
type TransitionStructure struct {
	// Identifier is the canonical content-derived key of the transition.
	Identifier string

	// Geometry is the XYZ coordinate block of the transition guess.
	Geometry string

	// Graph is the toolkit's opaque serialized transition graph. It is
	// passed back verbatim to BondOrders.
	Graph string
}

// Toolkit is the chemistry collaborator consumed by the graph builder.
//
// Implementations must be deterministic: the same structure yields the
// same identifier on every call (identifiers are content-addressed).
type Toolkit interface {
	// Canonicalize resolves a structural input to its canonical
	// identifier and canonical serialized form. A malformed input
	// returns a *StructureError.
	Canonicalize(ctx context.Context, structure string) (identifier, canonical string, err error)

	// Geometry embeds a structure into an XYZ coordinate block.
	Geometry(ctx context.Context, structure string) (string, error)

	// GenerateTransitions produces zero or more transition structures
	// connecting the reactant set to the product set. A pairing for
	// which no transition exists returns a *GenerationError; callers
	// are expected to skip that pairing and continue.
	GenerateTransitions(ctx context.Context, reactants, products []string) ([]TransitionStructure, error)

	// BondOrders maps each bond of a transition graph to its order tag.
	// Forming bonds carry a tag near 0.1, breaking bonds near 0.9.
	BondOrders(ctx context.Context, graph string) (map[Bond]float64, error)

	// DistanceMatrix returns pairwise interatomic distances for a
	// geometry, in the toolkit's internal length unit (bohr).
	DistanceMatrix(ctx context.Context, geometry string) ([][]float64, error)
}
