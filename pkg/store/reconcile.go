package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/amechx/rxnet/pkg/workgraph"
)

// SeedFileName is the geometry seed written into each new node's working
// directory.
const SeedFileName = "guess.xyz"

// maxNeighbors is the widest reactant or product set the transition
// schema can reference. Wider transitions are rejected outright rather
// than truncated.
const maxNeighbors = 2

// ErrTooManyNeighbors marks a transition whose reactant or product set
// exceeds the schema's two-slot foreign keys.
type ErrTooManyNeighbors struct {
	Identifier string
	Reactants  int
	Products   int
}

func (e *ErrTooManyNeighbors) Error() string {
	return fmt.Sprintf("transition %s has %d reactants and %d products; schema supports at most %d of each",
		e.Identifier, e.Reactants, e.Products, maxNeighbors)
}

// Result reports what a reconciliation pass changed.
type Result struct {
	// New lists identifiers inserted by this pass, stationaries first,
	// in graph iteration order within each role.
	New []string

	// Roles maps each newly inserted identifier to its node role.
	Roles map[string]workgraph.Role

	// IDs maps every identifier in the graph (new or pre-existing) to
	// its row id.
	IDs map[string]int64
}

// WorkDir returns the working directory for an identifier under dataRoot.
func WorkDir(dataRoot, identifier string) string {
	return filepath.Join(dataRoot, identifier)
}

// Reconcile projects a work graph onto the database, inserting every
// node not already present by identifier and materializing a working
// directory with a seed geometry file for each new node.
//
// All inserts for one call run in a single transaction: either the whole
// graph's new rows commit or none do. Working directories are created
// only after the commit, so a failed pass leaves no orphan directories;
// re-running after a partial failure is safe because identifier
// uniqueness dedupes whatever did commit, and seeds are re-checked for
// every node in the graph, so a seed write that failed after a commit is
// repaired on the next pass. An existing seed file is never overwritten.
//
// Stationary nodes are inserted before transition nodes so every
// reactant/product foreign key resolves within the same pass.
func (s *Store) Reconcile(ctx context.Context, g *workgraph.Graph, dataRoot string) (*Result, error) {
	for _, t := range g.Transitions() {
		if len(t.Reactants) > maxNeighbors || len(t.Products) > maxNeighbors {
			return nil, &ErrTooManyNeighbors{
				Identifier: t.Identifier,
				Reactants:  len(t.Reactants),
				Products:   len(t.Products),
			}
		}
		if len(t.Reactants) == 0 || len(t.Products) == 0 {
			return nil, &StoreError{Op: "reconcile", Err: fmt.Errorf("transition %s has no neighbors", t.Identifier)}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StoreError{Op: "begin reconcile", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	res := &Result{
		Roles: map[string]workgraph.Role{},
		IDs:   map[string]int64{},
	}
	seeds := map[string]string{} // identifier -> geometry

	for _, node := range g.Stationaries() {
		id, inserted, err := insertStationary(ctx, tx, node)
		if err != nil {
			return nil, err
		}
		res.IDs[node.Identifier] = id
		seeds[node.Identifier] = node.Geometry
		if inserted {
			res.New = append(res.New, node.Identifier)
			res.Roles[node.Identifier] = node.Role
		}
	}

	for _, node := range g.Transitions() {
		id, inserted, err := insertTransition(ctx, tx, node, res.IDs)
		if err != nil {
			return nil, err
		}
		res.IDs[node.Identifier] = id
		seeds[node.Identifier] = node.Geometry
		if inserted {
			res.New = append(res.New, node.Identifier)
			res.Roles[node.Identifier] = workgraph.RoleTransition
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &StoreError{Op: "commit reconcile", Err: err}
	}

	for identifier, geometry := range seeds {
		if err := writeSeed(dataRoot, identifier, geometry); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func insertStationary(ctx context.Context, tx *sql.Tx, node workgraph.Stationary) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM stationary WHERE amchi_identifier = ?`, node.Identifier).Scan(&id)
	switch {
	case err == nil:
		return id, false, nil
	case err != sql.ErrNoRows:
		return 0, false, &StoreError{Op: "lookup stationary", Err: err}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO stationary (amchi_identifier, structure_text, geometry_text)
		 VALUES (?, ?, ?)`,
		node.Identifier, node.Structure, node.Geometry)
	if err != nil {
		return 0, false, &StoreError{Op: "insert stationary", Err: err}
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, false, &StoreError{Op: "stationary row id", Err: err}
	}
	return id, true, nil
}

func insertTransition(ctx context.Context, tx *sql.Tx, node workgraph.Transition, ids map[string]int64) (int64, bool, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM "transition" WHERE amchi_identifier = ?`, node.Identifier).Scan(&id)
	switch {
	case err == nil:
		return id, false, nil
	case err != sql.ErrNoRows:
		return 0, false, &StoreError{Op: "lookup transition", Err: err}
	}

	neighbor := func(identifiers []string, slot int) (any, error) {
		if slot >= len(identifiers) {
			return nil, nil
		}
		rowID, ok := ids[identifiers[slot]]
		if !ok {
			return nil, &StoreError{Op: "resolve neighbor", Err: fmt.Errorf("identifier %s not reconciled", identifiers[slot])}
		}
		return rowID, nil
	}

	r1, err := neighbor(node.Reactants, 0)
	if err != nil {
		return 0, false, err
	}
	r2, err := neighbor(node.Reactants, 1)
	if err != nil {
		return 0, false, err
	}
	p1, err := neighbor(node.Products, 0)
	if err != nil {
		return 0, false, err
	}
	p2, err := neighbor(node.Products, 1)
	if err != nil {
		return 0, false, err
	}

	scanLines := make([]string, 0, len(node.Scans))
	for _, d := range node.Scans {
		scanLines = append(scanLines, d.String())
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO "transition"
			(amchi_identifier, reactant_1, reactant_2, product_1, product_2, geometry_text, scan_spec)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		node.Identifier, r1, r2, p1, p2, node.Geometry, strings.Join(scanLines, "\n"))
	if err != nil {
		return 0, false, &StoreError{Op: "insert transition", Err: err}
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, false, &StoreError{Op: "transition row id", Err: err}
	}
	return id, true, nil
}

// writeSeed materializes the seed geometry unless the file already
// exists; a present seed may have been edited by an operator.
func writeSeed(dataRoot, identifier, geometry string) error {
	dir := WorkDir(dataRoot, identifier)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StoreError{Op: "create working directory", Err: err}
	}
	path := filepath.Join(dir, SeedFileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return &StoreError{Op: "check seed geometry", Err: err}
	}
	if !strings.HasSuffix(geometry, "\n") {
		geometry += "\n"
	}
	if err := os.WriteFile(path, []byte(geometry), 0644); err != nil {
		return &StoreError{Op: "write seed geometry", Err: err}
	}
	return nil
}
