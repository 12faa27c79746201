package chem

import (
	"errors"
	"fmt"
)

// StructureError reports a structural input the toolkit could not parse
// or canonicalize. It is fatal to the build that supplied the input.
type StructureError struct {
	Input string
	Err   error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("unparseable structure %q: %v", e.Input, e.Err)
}

func (e *StructureError) Unwrap() error { return e.Err }

// GenerationError reports a reactant/product pairing for which the
// toolkit could not produce a transition structure. Expected and
// non-fatal: not every product-set hypothesis yields a valid transition.
type GenerationError struct {
	Reactants []string
	Products  []string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("no transition for %v -> %v: %v", e.Reactants, e.Products, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationFailure reports whether err marks a skippable pairing.
func IsGenerationFailure(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// IsStructureError reports whether err stems from a malformed input.
func IsStructureError(err error) bool {
	var se *StructureError
	return errors.As(err, &se)
}
