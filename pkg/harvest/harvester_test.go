package harvest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/amechx/rxnet/pkg/chem"
	"github.com/amechx/rxnet/pkg/chem/chemtest"
	"github.com/amechx/rxnet/pkg/store"
	"github.com/amechx/rxnet/pkg/workgraph"
)

// seedNetwork reconciles a one-reaction graph (reactant + two products +
// one transition) and returns the store, data root, and reconcile result.
func seedNetwork(t *testing.T) (*store.Store, string, *store.Result) {
	t.Helper()

	s, err := store.Open(context.Background(), store.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := store.Migrate(context.Background(), s); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	tk := chemtest.New()
	tk.AddSpecies(chemtest.FakeSpecies{Identifier: "AMCHI-R", Canonical: "can-r", Geometry: "geo r"}, "raw-r")
	tk.AddSpecies(chemtest.FakeSpecies{Identifier: "AMCHI-P1", Canonical: "can-p1", Geometry: "geo p1"}, "raw-p1")
	tk.AddSpecies(chemtest.FakeSpecies{Identifier: "AMCHI-P2", Canonical: "can-p2", Geometry: "geo p2"}, "raw-p2")
	tk.AddTransition([]string{"can-r"}, []string{"can-p1", "can-p2"}, chemtest.FakeTransition{
		Identifier: "AMCHI-TS1", Geometry: "geo ts1", Graph: "g-ts1",
	})
	tk.Orders["g-ts1"] = map[chem.Bond]float64{{A: 0, B: 1}: 0.9}
	tk.Distances["geo ts1"] = [][]float64{{0, 2.0}, {2.0, 0}}

	g, err := workgraph.NewBuilder(tk, nil).Build(context.Background(),
		[]string{"raw-r"}, [][]string{{"raw-p1", "raw-p2"}})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	root := t.TempDir()
	res, err := s.Reconcile(context.Background(), g, root)
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	return s, root, res
}

func writeWorkLog(t *testing.T, root, identifier, name, content string) {
	t.Helper()
	path := filepath.Join(store.WorkDir(root, identifier), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestHarvester_Run(t *testing.T) {
	s, root, res := seedNetwork(t)

	writeWorkLog(t, root, "AMCHI-R", DefaultCalcLog,
		"FINAL SINGLE POINT ENERGY -100.5\nZero point energy 0.25\n")
	writeWorkLog(t, root, "AMCHI-TS1", DefaultCalcLog,
		"FINAL SINGLE POINT ENERGY -99.0\nZero point energy 0.20\n")
	writeWorkLog(t, root, "AMCHI-TS1", DefaultFreqLog,
		"   6: -412.70 cm**-1 ***imaginary mode***\n")
	// AMCHI-P1 and AMCHI-P2 have no logs yet: jobs still running.

	h := New(s, root, nil)
	summary, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if summary.Scanned != 4 {
		t.Fatalf("scanned = %d, want 4", summary.Scanned)
	}
	if summary.Updated != 2 {
		t.Fatalf("updated = %d, want 2", summary.Updated)
	}
	if summary.FieldsSet != 5 {
		t.Fatalf("fields set = %d, want 5", summary.FieldsSet)
	}
	if summary.ParseErrors != 0 {
		t.Fatalf("parse errors = %d", summary.ParseErrors)
	}

	rec, err := s.Energies(context.Background(), store.StationaryOwner(res.IDs["AMCHI-R"]))
	if err != nil {
		t.Fatalf("Energies() error: %v", err)
	}
	if rec == nil || !rec.Complete() {
		t.Fatalf("reactant record = %+v, want complete", rec)
	}
	if *rec.Total != -100.25 {
		t.Fatalf("total = %v", *rec.Total)
	}

	tsRec, err := s.Energies(context.Background(), store.TransitionOwner(res.IDs["AMCHI-TS1"]))
	if err != nil {
		t.Fatalf("Energies() error: %v", err)
	}
	if tsRec == nil || tsRec.ImaginaryFreq == nil || *tsRec.ImaginaryFreq != -412.70 {
		t.Fatalf("transition record = %+v", tsRec)
	}

	// Species without logs got no energy row at all.
	p1, err := s.Energies(context.Background(), store.StationaryOwner(res.IDs["AMCHI-P1"]))
	if err != nil {
		t.Fatalf("Energies() error: %v", err)
	}
	if p1 != nil {
		t.Fatalf("p1 record = %+v, want none", p1)
	}
}

func TestHarvester_Rerunnable(t *testing.T) {
	s, root, res := seedNetwork(t)

	// First pass: only the single point is available.
	writeWorkLog(t, root, "AMCHI-R", DefaultCalcLog, "FINAL SINGLE POINT ENERGY -100.5\n")
	h := New(s, root, nil)
	if _, err := h.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	// Job finishes; the log now carries a conflicting single point plus
	// the zero point. Only the missing field is taken.
	writeWorkLog(t, root, "AMCHI-R", DefaultCalcLog,
		"FINAL SINGLE POINT ENERGY -999.0\nZero point energy 0.25\n")
	if _, err := h.Run(context.Background()); err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	rec, err := s.Energies(context.Background(), store.StationaryOwner(res.IDs["AMCHI-R"]))
	if err != nil {
		t.Fatalf("Energies() error: %v", err)
	}
	if *rec.SinglePoint != -100.5 {
		t.Fatalf("single point = %v, first extraction must win", *rec.SinglePoint)
	}
	if rec.Total == nil || *rec.Total != -100.25 {
		t.Fatalf("total = %v, want recomputed -100.25", rec.Total)
	}
}

func TestHarvester_PatternFilter(t *testing.T) {
	s, root, _ := seedNetwork(t)

	writeWorkLog(t, root, "AMCHI-R", DefaultCalcLog,
		"FINAL SINGLE POINT ENERGY -1.0\nZero point energy 0.1\n")
	writeWorkLog(t, root, "AMCHI-P1", DefaultCalcLog,
		"FINAL SINGLE POINT ENERGY -2.0\nZero point energy 0.2\n")

	h := New(s, root, nil)
	h.Pattern = "AMCHI-R"
	summary, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Scanned != 1 || summary.Updated != 1 {
		t.Fatalf("summary = %+v, want exactly the selected record", summary)
	}
}

func TestHarvester_ParseErrorScopedToField(t *testing.T) {
	s, root, res := seedNetwork(t)

	// The single-point line is corrupt but the zero point is fine; the
	// bad field is reported, the good field still lands.
	writeWorkLog(t, root, "AMCHI-R", DefaultCalcLog,
		"FINAL SINGLE POINT ENERGY not converged\nZero point energy 0.25\n")

	h := New(s, root, nil)
	h.Pattern = "AMCHI-R"
	summary, err := h.Run(context.Background())
	if err == nil {
		t.Fatal("expected joined parse error")
	}
	if summary.ParseErrors != 1 {
		t.Fatalf("parse errors = %d, want 1", summary.ParseErrors)
	}
	if summary.Updated != 1 || summary.FieldsSet != 1 {
		t.Fatalf("summary = %+v, want the zero point harvested", summary)
	}

	rec, rerr := s.Energies(context.Background(), store.StationaryOwner(res.IDs["AMCHI-R"]))
	if rerr != nil {
		t.Fatalf("Energies() error: %v", rerr)
	}
	if rec == nil || rec.ZeroPoint == nil || *rec.ZeroPoint != 0.25 {
		t.Fatalf("record = %+v, want zero point set", rec)
	}
	if rec.SinglePoint != nil {
		t.Fatalf("single point = %v, want unset after parse error", *rec.SinglePoint)
	}
}

func TestHarvester_AmbiguousCountsOnlyMissingFields(t *testing.T) {
	s, root, res := seedNetwork(t)

	sp := -100.5
	if _, err := s.UpsertEnergies(context.Background(), store.StationaryOwner(res.IDs["AMCHI-R"]),
		store.EnergyValues{SinglePoint: &sp}); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	// No logs exist: the re-scan for the pending zero point must not
	// count the already-stored single point as ambiguous.
	h := New(s, root, nil)
	h.Pattern = "AMCHI-R"
	summary, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Scanned != 1 {
		t.Fatalf("scanned = %d, want 1", summary.Scanned)
	}
	if summary.Ambiguous != 1 {
		t.Fatalf("ambiguous = %d, want 1 (zero point only)", summary.Ambiguous)
	}
}

func TestHarvester_ParseErrorsCollected(t *testing.T) {
	s, root, res := seedNetwork(t)

	writeWorkLog(t, root, "AMCHI-R", DefaultCalcLog,
		"FINAL SINGLE POINT ENERGY not converged\n")
	writeWorkLog(t, root, "AMCHI-P1", DefaultCalcLog,
		"FINAL SINGLE POINT ENERGY -2.0\nZero point energy 0.2\n")

	h := New(s, root, nil)
	summary, err := h.Run(context.Background())
	if err == nil {
		t.Fatal("expected joined parse error")
	}

	// The bad log did not stop the pass: the healthy record still landed.
	rec, rerr := s.Energies(context.Background(), store.StationaryOwner(res.IDs["AMCHI-P1"]))
	if rerr != nil {
		t.Fatalf("Energies() error: %v", rerr)
	}
	if rec == nil || rec.SinglePoint == nil {
		t.Fatalf("p1 record = %+v, want harvested despite earlier parse error", rec)
	}
	if summary.Updated < 1 {
		t.Fatalf("summary = %+v", summary)
	}
}
