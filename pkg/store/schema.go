package store

import (
	"context"
	"fmt"
)

const SchemaVersion = 1

// Migrate creates (or upgrades) the network schema in-place. The whole
// migration runs in one transaction.
func Migrate(ctx context.Context, s *Store) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("store is nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "begin migration", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			schema_version INTEGER NOT NULL
		);`,
		`INSERT INTO schema_meta (id, schema_version)
			VALUES (1, 0)
			ON CONFLICT(id) DO NOTHING;`,

		`CREATE TABLE IF NOT EXISTS stationary (
			id INTEGER PRIMARY KEY,
			amchi_identifier TEXT NOT NULL,
			structure_text TEXT NOT NULL,
			geometry_text TEXT NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_stationary_amchi
			ON stationary(amchi_identifier);`,

		`CREATE TABLE IF NOT EXISTS "transition" (
			id INTEGER PRIMARY KEY,
			amchi_identifier TEXT NOT NULL,
			reactant_1 INTEGER NOT NULL REFERENCES stationary(id),
			reactant_2 INTEGER REFERENCES stationary(id),
			product_1 INTEGER NOT NULL REFERENCES stationary(id),
			product_2 INTEGER REFERENCES stationary(id),
			geometry_text TEXT NOT NULL,
			scan_spec TEXT NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_transition_amchi
			ON "transition"(amchi_identifier);`,

		`CREATE TABLE IF NOT EXISTS energies (
			id INTEGER PRIMARY KEY,
			stationary_id INTEGER REFERENCES stationary(id),
			transition_id INTEGER REFERENCES "transition"(id),
			single_point REAL,
			zero_point REAL,
			total_energy REAL,
			imaginary_frequency REAL,
			CHECK (
				(stationary_id IS NOT NULL AND transition_id IS NULL)
				OR
				(transition_id IS NOT NULL AND stationary_id IS NULL)
			)
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_energies_stationary
			ON energies(stationary_id) WHERE stationary_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_energies_transition
			ON energies(transition_id) WHERE transition_id IS NOT NULL;`,

		fmt.Sprintf(`UPDATE schema_meta SET schema_version = %d WHERE id = 1;`, SchemaVersion),
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &StoreError{Op: "apply schema", Err: fmt.Errorf("%w (stmt: %.60s...)", err, stmt)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "commit migration", Err: err}
	}
	return nil
}
