package harvest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/amechx/rxnet/pkg/store"
)

// Log markers for the scalar fields the pipeline cares about.
const (
	MarkerSinglePoint = "FINAL SINGLE POINT ENERGY"
	MarkerZeroPoint   = "Zero point energy"
	MarkerImaginary   = "***imaginary mode***"
)

// Default log file names within a node working directory.
const (
	DefaultCalcLog = "calc.log"
	DefaultFreqLog = "freq.log"
)

// Summary reports what one harvest pass did, so an operator can decide
// whether to re-run harvesting later.
type Summary struct {
	Scanned     int // records examined
	Updated     int // records whose energy row was inserted or extended
	FieldsSet   int // individual fields newly extracted
	Ambiguous   int // missing fields left unset (no log or marker mismatch)
	ParseErrors int // fields dropped because a marker line would not parse
}

// Harvester scans node working directories for calculation logs and
// upserts extracted energies.
type Harvester struct {
	store    *store.Store
	dataRoot string

	// Pattern is a glob over identifiers selecting which records to
	// harvest. Defaults to every record.
	Pattern string

	// CalcLog and FreqLog name the primary calculation log and the
	// transition frequency-analysis log.
	CalcLog string
	FreqLog string

	logger *zap.Logger
}

func New(st *store.Store, dataRoot string, logger *zap.Logger) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		store:    st,
		dataRoot: dataRoot,
		Pattern:  "**",
		CalcLog:  DefaultCalcLog,
		FreqLog:  DefaultFreqLog,
		logger:   logger,
	}
}

// Run attempts extraction for every record lacking a complete energy
// record. Ambiguous fields are skipped silently (counted); parse errors
// are logged, counted, and joined into the returned error after the
// whole pass has run.
func (h *Harvester) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	var parseErrs []error

	stationaries, err := h.store.StationariesNeedingHarvest(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range stationaries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !h.selected(rec.Identifier) {
			continue
		}
		summary.Scanned++
		perrs, err := h.harvestOne(ctx, rec.Identifier, store.StationaryOwner(rec.ID), false, summary)
		parseErrs = append(parseErrs, perrs...)
		if err != nil {
			return summary, err
		}
	}

	transitions, err := h.store.TransitionsNeedingHarvest(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range transitions {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !h.selected(rec.Identifier) {
			continue
		}
		summary.Scanned++
		perrs, err := h.harvestOne(ctx, rec.Identifier, store.TransitionOwner(rec.ID), true, summary)
		parseErrs = append(parseErrs, perrs...)
		if err != nil {
			return summary, err
		}
	}

	return summary, errors.Join(parseErrs...)
}

func (h *Harvester) selected(identifier string) bool {
	ok, err := doublestar.Match(h.Pattern, identifier)
	if err != nil {
		// An unparseable pattern matches nothing; surfaced at config time.
		return false
	}
	return ok
}

// harvestOne re-attempts extraction for one record and upserts whatever
// was found. Only fields still missing from the energy row are
// attempted, so a record re-scanned for one pending field does not count
// its satisfied fields as ambiguous. A parse error is scoped to its
// field: it is collected and the record's remaining markers still run.
func (h *Harvester) harvestOne(ctx context.Context, identifier string, owner store.Owner, transition bool, summary *Summary) ([]error, error) {
	existing, err := h.store.Energies(ctx, owner)
	if err != nil {
		return nil, err
	}
	stored := func(get func(*store.EnergyRecord) *float64) bool {
		return existing != nil && get(existing) != nil
	}

	dir := store.WorkDir(h.dataRoot, identifier)
	calcLog := filepath.Join(dir, h.CalcLog)

	var parseErrs []error
	fields := 0

	extract := func(path, marker string) (*float64, error) {
		v, found, err := Scalar(path, marker)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				summary.ParseErrors++
				parseErrs = append(parseErrs, err)
				return nil, nil
			}
			return nil, err
		}
		if !found {
			summary.Ambiguous++
			return nil, nil
		}
		fields++
		return &v, nil
	}

	var values store.EnergyValues
	if !stored(func(r *store.EnergyRecord) *float64 { return r.SinglePoint }) {
		if values.SinglePoint, err = extract(calcLog, MarkerSinglePoint); err != nil {
			return parseErrs, err
		}
	}
	if !stored(func(r *store.EnergyRecord) *float64 { return r.ZeroPoint }) {
		if values.ZeroPoint, err = extract(calcLog, MarkerZeroPoint); err != nil {
			return parseErrs, err
		}
	}
	if transition && !stored(func(r *store.EnergyRecord) *float64 { return r.ImaginaryFreq }) {
		if values.ImaginaryFreq, err = extract(filepath.Join(dir, h.FreqLog), MarkerImaginary); err != nil {
			return parseErrs, err
		}
	}

	if fields == 0 {
		h.logger.Debug("nothing to harvest", zap.String("identifier", identifier))
		return parseErrs, nil
	}

	if _, err := h.store.UpsertEnergies(ctx, owner, values); err != nil {
		return parseErrs, fmt.Errorf("upsert energies for %s: %w", identifier, err)
	}
	summary.Updated++
	summary.FieldsSet += fields
	h.logger.Info("harvested energies",
		zap.String("identifier", identifier),
		zap.Int("fields", fields))
	return parseErrs, nil
}
