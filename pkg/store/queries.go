package store

import (
	"context"
	"database/sql"
)

// StationaryRecord is one persisted species row.
type StationaryRecord struct {
	ID         int64
	Identifier string
	Structure  string
	Geometry   string
}

// TransitionRecord is one persisted transition row.
type TransitionRecord struct {
	ID         int64
	Identifier string
	Reactant1  int64
	Reactant2  *int64
	Product1   int64
	Product2   *int64
	Geometry   string
	ScanSpec   string
}

// ListStationaries returns every species row in id order.
func (s *Store) ListStationaries(ctx context.Context) ([]StationaryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amchi_identifier, structure_text, geometry_text FROM stationary ORDER BY id`)
	if err != nil {
		return nil, &StoreError{Op: "list stationaries", Err: err}
	}
	defer rows.Close()

	var out []StationaryRecord
	for rows.Next() {
		var r StationaryRecord
		if err := rows.Scan(&r.ID, &r.Identifier, &r.Structure, &r.Geometry); err != nil {
			return nil, &StoreError{Op: "scan stationary", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list stationaries", Err: err}
	}
	return out, nil
}

// ListTransitions returns every transition row in id order.
func (s *Store) ListTransitions(ctx context.Context) ([]TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amchi_identifier, reactant_1, reactant_2, product_1, product_2, geometry_text, scan_spec
		 FROM "transition" ORDER BY id`)
	if err != nil {
		return nil, &StoreError{Op: "list transitions", Err: err}
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var r TransitionRecord
		if err := rows.Scan(&r.ID, &r.Identifier, &r.Reactant1, &r.Reactant2,
			&r.Product1, &r.Product2, &r.Geometry, &r.ScanSpec); err != nil {
			return nil, &StoreError{Op: "scan transition", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list transitions", Err: err}
	}
	return out, nil
}

// StationariesNeedingHarvest returns species rows whose energy record is
// absent or missing single-point, zero-point, or total energy.
func (s *Store) StationariesNeedingHarvest(ctx context.Context) ([]StationaryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT st.id, st.amchi_identifier, st.structure_text, st.geometry_text
		 FROM stationary st
		 LEFT JOIN energies e ON e.stationary_id = st.id
		 WHERE e.id IS NULL
		    OR e.single_point IS NULL
		    OR e.zero_point IS NULL
		    OR e.total_energy IS NULL
		 ORDER BY st.id`)
	if err != nil {
		return nil, &StoreError{Op: "list stationaries needing harvest", Err: err}
	}
	defer rows.Close()

	var out []StationaryRecord
	for rows.Next() {
		var r StationaryRecord
		if err := rows.Scan(&r.ID, &r.Identifier, &r.Structure, &r.Geometry); err != nil {
			return nil, &StoreError{Op: "scan stationary", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list stationaries needing harvest", Err: err}
	}
	return out, nil
}

// TransitionsNeedingHarvest returns transition rows whose energy record
// is absent or incomplete (imaginary frequency included).
func (s *Store) TransitionsNeedingHarvest(ctx context.Context) ([]TransitionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.amchi_identifier, t.reactant_1, t.reactant_2, t.product_1, t.product_2,
		        t.geometry_text, t.scan_spec
		 FROM "transition" t
		 LEFT JOIN energies e ON e.transition_id = t.id
		 WHERE e.id IS NULL
		    OR e.single_point IS NULL
		    OR e.zero_point IS NULL
		    OR e.total_energy IS NULL
		    OR e.imaginary_frequency IS NULL
		 ORDER BY t.id`)
	if err != nil {
		return nil, &StoreError{Op: "list transitions needing harvest", Err: err}
	}
	defer rows.Close()

	var out []TransitionRecord
	for rows.Next() {
		var r TransitionRecord
		if err := rows.Scan(&r.ID, &r.Identifier, &r.Reactant1, &r.Reactant2,
			&r.Product1, &r.Product2, &r.Geometry, &r.ScanSpec); err != nil {
			return nil, &StoreError{Op: "scan transition", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list transitions needing harvest", Err: err}
	}
	return out, nil
}

// Counts summarizes per-table row counts for operator status output.
type Counts struct {
	Stationaries int64
	Transitions  int64
	Energies     int64
}

func (s *Store) Count(ctx context.Context) (Counts, error) {
	var c Counts
	for _, q := range []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM stationary`, &c.Stationaries},
		{`SELECT COUNT(*) FROM "transition"`, &c.Transitions},
		{`SELECT COUNT(*) FROM energies`, &c.Energies},
	} {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil && err != sql.ErrNoRows {
			return Counts{}, &StoreError{Op: "count rows", Err: err}
		}
	}
	return c, nil
}
