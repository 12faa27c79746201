// Package chemtest provides an in-memory Toolkit fake for tests.
package chemtest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/amechx/rxnet/pkg/chem"
)

// FakeSpecies describes one stationary structure known to the fake.
type FakeSpecies struct {
	Identifier string
	Canonical  string
	Geometry   string
}

// FakeTransition describes a canned transition for one pairing.
type FakeTransition struct {
	Identifier string
	Geometry   string
	Graph      string
}

// Toolkit is a deterministic in-memory chem.Toolkit.
//
// Species maps every accepted input encoding to its species, so two
// encodings of the same structure can share an identifier. Transitions
// is keyed by PairingKey(reactants, products) over canonical forms.
type Toolkit struct {
	Species     map[string]FakeSpecies
	Transitions map[string][]FakeTransition
	Orders      map[string]map[chem.Bond]float64 // keyed by transition graph
	Distances   map[string][][]float64           // keyed by geometry
}

func New() *Toolkit {
	return &Toolkit{
		Species:     map[string]FakeSpecies{},
		Transitions: map[string][]FakeTransition{},
		Orders:      map[string]map[chem.Bond]float64{},
		Distances:   map[string][][]float64{},
	}
}

// PairingKey builds the lookup key for a reactant/product pairing.
// Order within each side is not significant.
func PairingKey(reactants, products []string) string {
	r := append([]string(nil), reactants...)
	p := append([]string(nil), products...)
	sort.Strings(r)
	sort.Strings(p)
	return strings.Join(r, "+") + ">>" + strings.Join(p, "+")
}

func (t *Toolkit) AddSpecies(sp FakeSpecies, encodings ...string) {
	for _, enc := range append(encodings, sp.Canonical) {
		t.Species[enc] = sp
	}
}

func (t *Toolkit) AddTransition(reactants, products []string, ts FakeTransition) {
	key := PairingKey(reactants, products)
	t.Transitions[key] = append(t.Transitions[key], ts)
}

func (t *Toolkit) Canonicalize(_ context.Context, structure string) (string, string, error) {
	sp, ok := t.Species[structure]
	if !ok {
		return "", "", &chem.StructureError{Input: structure, Err: fmt.Errorf("unknown structure")}
	}
	return sp.Identifier, sp.Canonical, nil
}

func (t *Toolkit) Geometry(_ context.Context, structure string) (string, error) {
	sp, ok := t.Species[structure]
	if !ok {
		return "", &chem.StructureError{Input: structure, Err: fmt.Errorf("unknown structure")}
	}
	return sp.Geometry, nil
}

func (t *Toolkit) GenerateTransitions(_ context.Context, reactants, products []string) ([]chem.TransitionStructure, error) {
	canned, ok := t.Transitions[PairingKey(reactants, products)]
	if !ok {
		return nil, &chem.GenerationError{
			Reactants: reactants,
			Products:  products,
			Err:       fmt.Errorf("no canned transition"),
		}
	}
	out := make([]chem.TransitionStructure, 0, len(canned))
	for _, ts := range canned {
		out = append(out, chem.TransitionStructure{
			Identifier: ts.Identifier,
			Geometry:   ts.Geometry,
			Graph:      ts.Graph,
		})
	}
	return out, nil
}

func (t *Toolkit) BondOrders(_ context.Context, graph string) (map[chem.Bond]float64, error) {
	orders, ok := t.Orders[graph]
	if !ok {
		return nil, fmt.Errorf("no bond orders for graph %q", graph)
	}
	return orders, nil
}

func (t *Toolkit) DistanceMatrix(_ context.Context, geometry string) ([][]float64, error) {
	m, ok := t.Distances[geometry]
	if !ok {
		return nil, fmt.Errorf("no distance matrix for geometry %q", geometry)
	}
	return m, nil
}

var _ chem.Toolkit = (*Toolkit)(nil)
