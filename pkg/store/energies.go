package store

import (
	"context"
	"database/sql"
	"fmt"
)

// EnergyRecord holds harvested energies for exactly one node record
// (species xor transition). Nil fields are pending extraction.
type EnergyRecord struct {
	ID            int64
	StationaryID  *int64
	TransitionID  *int64
	SinglePoint   *float64
	ZeroPoint     *float64
	Total         *float64
	ImaginaryFreq *float64
}

// Complete reports whether nothing is left to extract for this record.
// Imaginary frequency counts only for transition-owned records.
func (r *EnergyRecord) Complete() bool {
	if r.SinglePoint == nil || r.ZeroPoint == nil || r.Total == nil {
		return false
	}
	if r.TransitionID != nil && r.ImaginaryFreq == nil {
		return false
	}
	return true
}

// Owner names the record an energy row is attached to.
type Owner struct {
	kind  string // "stationary" or "transition"
	rowID int64
}

func StationaryOwner(rowID int64) Owner { return Owner{kind: "stationary", rowID: rowID} }
func TransitionOwner(rowID int64) Owner { return Owner{kind: "transition", rowID: rowID} }

func (o Owner) column() string {
	return o.kind + "_id"
}

// EnergyValues is a freshly extracted (possibly partial) set of fields.
type EnergyValues struct {
	SinglePoint   *float64
	ZeroPoint     *float64
	ImaginaryFreq *float64
}

// UpsertEnergies merges freshly extracted values into the owner's energy
// row, inserting the row when absent.
//
// Previously set fields always win: a nil extracted value never clears a
// stored one, and a stored value is never replaced. Total energy is
// recomputed as single_point + zero_point whenever both are known after
// the merge, never carried from a stale cache.
func (s *Store) UpsertEnergies(ctx context.Context, owner Owner, values EnergyValues) (*EnergyRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &StoreError{Op: "begin energy upsert", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := energyRowTx(ctx, tx, owner)
	if err != nil {
		return nil, err
	}

	merged := EnergyRecord{
		SinglePoint:   firstSet(existingField(existing, func(r *EnergyRecord) *float64 { return r.SinglePoint }), values.SinglePoint),
		ZeroPoint:     firstSet(existingField(existing, func(r *EnergyRecord) *float64 { return r.ZeroPoint }), values.ZeroPoint),
		ImaginaryFreq: firstSet(existingField(existing, func(r *EnergyRecord) *float64 { return r.ImaginaryFreq }), values.ImaginaryFreq),
	}
	if merged.SinglePoint != nil && merged.ZeroPoint != nil {
		total := *merged.SinglePoint + *merged.ZeroPoint
		merged.Total = &total
	}

	if existing == nil {
		query := fmt.Sprintf(
			`INSERT INTO energies (%s, single_point, zero_point, total_energy, imaginary_frequency)
			 VALUES (?, ?, ?, ?, ?)`, owner.column())
		result, err := tx.ExecContext(ctx, query,
			owner.rowID, merged.SinglePoint, merged.ZeroPoint, merged.Total, merged.ImaginaryFreq)
		if err != nil {
			return nil, &StoreError{Op: "insert energies", Err: err}
		}
		merged.ID, err = result.LastInsertId()
		if err != nil {
			return nil, &StoreError{Op: "energies row id", Err: err}
		}
	} else {
		merged.ID = existing.ID
		query := fmt.Sprintf(
			`UPDATE energies
			 SET single_point = ?, zero_point = ?, total_energy = ?, imaginary_frequency = ?
			 WHERE %s = ?`, owner.column())
		if _, err := tx.ExecContext(ctx, query,
			merged.SinglePoint, merged.ZeroPoint, merged.Total, merged.ImaginaryFreq, owner.rowID); err != nil {
			return nil, &StoreError{Op: "update energies", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &StoreError{Op: "commit energy upsert", Err: err}
	}

	setOwner(&merged, owner)
	return &merged, nil
}

// Energies returns the owner's energy row, or nil when none exists.
func (s *Store) Energies(ctx context.Context, owner Owner) (*EnergyRecord, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, &StoreError{Op: "begin energy read", Err: err}
	}
	defer func() { _ = tx.Rollback() }()
	return energyRowTx(ctx, tx, owner)
}

func energyRowTx(ctx context.Context, tx *sql.Tx, owner Owner) (*EnergyRecord, error) {
	query := fmt.Sprintf(
		`SELECT id, stationary_id, transition_id, single_point, zero_point, total_energy, imaginary_frequency
		 FROM energies WHERE %s = ?`, owner.column())

	var rec EnergyRecord
	err := tx.QueryRowContext(ctx, query, owner.rowID).Scan(
		&rec.ID, &rec.StationaryID, &rec.TransitionID,
		&rec.SinglePoint, &rec.ZeroPoint, &rec.Total, &rec.ImaginaryFreq)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "read energies", Err: err}
	}
	return &rec, nil
}

func setOwner(rec *EnergyRecord, owner Owner) {
	id := owner.rowID
	if owner.kind == "stationary" {
		rec.StationaryID = &id
	} else {
		rec.TransitionID = &id
	}
}

func existingField(rec *EnergyRecord, get func(*EnergyRecord) *float64) *float64 {
	if rec == nil {
		return nil
	}
	return get(rec)
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
