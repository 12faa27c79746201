// Package workgraph assembles the enumerated work graph for one reaction
// set: stationary species and transition structures as nodes, with
// reactant->transition and transition->product dependency edges.
package workgraph

import "fmt"

// Role tags a node's function in the reaction network.
type Role string

const (
	RoleReactant   Role = "reactant"
	RoleProduct    Role = "product"
	RoleTransition Role = "transition"
)

// Node is either a Stationary or a Transition.
type Node interface {
	// ID is the canonical content-derived identifier. Two nodes with
	// the same ID are the same chemical entity.
	ID() string
	NodeRole() Role
}

// Stationary is a persisted-to-be chemical species.
type Stationary struct {
	Identifier string
	Role       Role // RoleReactant or RoleProduct
	Structure  string
	Geometry   string
}

func (s Stationary) ID() string     { return s.Identifier }
func (s Stationary) NodeRole() Role { return s.Role }

// Transition is a transition structure connecting a reactant set to a
// product set, with the bond-scan directives used to locate it.
type Transition struct {
	Identifier string
	Geometry   string
	Scans      []ScanDirective
	Reactants  []string // identifiers, in graph insertion order
	Products   []string
}

func (t Transition) ID() string     { return t.Identifier }
func (t Transition) NodeRole() Role { return RoleTransition }

// ScanDirective samples one interatomic distance over a fixed range while
// searching for a transition structure.
type ScanDirective struct {
	AtomA int
	AtomB int
	Start float64 // angstrom
	Step  float64 // angstrom
	Count int
}

// String renders the directive in the input-file form consumed by the
// quantum-chemistry program.
func (d ScanDirective) String() string {
	return fmt.Sprintf("scan B %d %d = %.3f, %.1f, %d", d.AtomA, d.AtomB, d.Start, d.Step, d.Count)
}

// EdgeKind classifies a dependency edge.
type EdgeKind string

const (
	// EdgeFeedsTransition points from a reactant to a transition.
	EdgeFeedsTransition EdgeKind = "feeds-transition"
	// EdgeYieldsProduct points from a transition to a product.
	EdgeYieldsProduct EdgeKind = "yields-product"
)

// Edge is a directed dependency between two node identifiers.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Graph is an immutable directed graph over work nodes. Build one with a
// Builder; node iteration order is insertion order.
type Graph struct {
	nodes []Node
	byID  map[string]Node
	edges []Edge
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Node looks a node up by identifier.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.byID[id]
	return n, ok
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Stationaries returns stationary nodes in insertion order.
func (g *Graph) Stationaries() []Stationary {
	var out []Stationary
	for _, n := range g.nodes {
		if s, ok := n.(Stationary); ok {
			out = append(out, s)
		}
	}
	return out
}

// Transitions returns transition nodes in insertion order.
func (g *Graph) Transitions() []Transition {
	var out []Transition
	for _, n := range g.nodes {
		if t, ok := n.(Transition); ok {
			out = append(out, t)
		}
	}
	return out
}

// Predecessors returns the identifiers with an edge into id, in edge
// insertion order.
func (g *Graph) Predecessors(id string) []string {
	var out []string
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e.From)
		}
	}
	return out
}
