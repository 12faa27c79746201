package workgraph

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/amechx/rxnet/pkg/chem"
)

// Builder accumulates nodes and edges for one reaction set and returns
// the finished graph as an immutable value. The builder owns all mutable
// state; a Graph handed out by Build is never modified again.
type Builder struct {
	toolkit chem.Toolkit
	logger  *zap.Logger

	nodes []Node
	byID  map[string]Node
	edges []Edge
}

func NewBuilder(toolkit chem.Toolkit, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		toolkit: toolkit,
		logger:  logger,
		byID:    map[string]Node{},
	}
}

func (b *Builder) addNode(n Node) {
	if _, ok := b.byID[n.ID()]; ok {
		return
	}
	b.byID[n.ID()] = n
	b.nodes = append(b.nodes, n)
}

func (b *Builder) addEdge(from, to string, kind EdgeKind) {
	for _, e := range b.edges {
		if e.From == from && e.To == to && e.Kind == kind {
			return
		}
	}
	b.edges = append(b.edges, Edge{From: from, To: to, Kind: kind})
}

// Build enumerates the work graph for one reactant set and its candidate
// product sets.
//
// Every reactant and every product across all candidate sets becomes a
// stationary node; each pairing the toolkit can connect contributes one
// transition node with feeds-transition / yields-product edges. Pairings
// the toolkit cannot connect are skipped. A malformed structural input
// aborts the whole build with a *chem.StructureError.
func (b *Builder) Build(ctx context.Context, reactants []string, productSets [][]string) (*Graph, error) {
	reactantIDs, reactantForms, err := b.addStationaries(ctx, reactants, RoleReactant)
	if err != nil {
		return nil, err
	}

	for _, products := range productSets {
		productIDs, productForms, err := b.addStationaries(ctx, products, RoleProduct)
		if err != nil {
			return nil, err
		}

		transitions, err := b.toolkit.GenerateTransitions(ctx, reactantForms, productForms)
		if err != nil {
			if chem.IsGenerationFailure(err) {
				b.logger.Debug("skipping pairing without transition",
					zap.Strings("reactants", reactantIDs),
					zap.Strings("products", productIDs))
				continue
			}
			return nil, err
		}

		for _, ts := range transitions {
			if err := b.addTransition(ctx, ts, reactantIDs, productIDs); err != nil {
				return nil, err
			}
		}
	}

	return &Graph{nodes: b.nodes, byID: b.byID, edges: b.edges}, nil
}

func (b *Builder) addStationaries(ctx context.Context, structures []string, role Role) (ids, canonicals []string, err error) {
	for _, structure := range structures {
		identifier, canonical, err := b.toolkit.Canonicalize(ctx, structure)
		if err != nil {
			return nil, nil, err
		}
		geometry, err := b.toolkit.Geometry(ctx, canonical)
		if err != nil {
			return nil, nil, err
		}

		b.addNode(Stationary{
			Identifier: identifier,
			Role:       role,
			Structure:  canonical,
			Geometry:   geometry,
		})
		ids = append(ids, identifier)
		canonicals = append(canonicals, canonical)
	}
	return ids, canonicals, nil
}

func (b *Builder) addTransition(ctx context.Context, ts chem.TransitionStructure, reactantIDs, productIDs []string) error {
	if ts.Identifier == "" {
		return fmt.Errorf("toolkit returned transition without identifier")
	}
	if _, exists := b.byID[ts.Identifier]; !exists {
		scans, err := b.deriveScans(ctx, ts)
		if err != nil {
			return fmt.Errorf("derive scans for %s: %w", ts.Identifier, err)
		}
		b.addNode(Transition{
			Identifier: ts.Identifier,
			Geometry:   ts.Geometry,
			Scans:      scans,
			Reactants:  append([]string(nil), reactantIDs...),
			Products:   append([]string(nil), productIDs...),
		})
	}

	for _, r := range reactantIDs {
		b.addEdge(r, ts.Identifier, EdgeFeedsTransition)
	}
	for _, p := range productIDs {
		b.addEdge(ts.Identifier, p, EdgeYieldsProduct)
	}
	return nil
}
