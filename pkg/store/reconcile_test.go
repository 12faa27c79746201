package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/amechx/rxnet/pkg/chem"
	"github.com/amechx/rxnet/pkg/chem/chemtest"
	"github.com/amechx/rxnet/pkg/workgraph"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := Migrate(context.Background(), s); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return s
}

func testGraph(t *testing.T) *workgraph.Graph {
	t.Helper()
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
	return g
}

func TestReconcile_InsertsGraph(t *testing.T) {
	s := openTestStore(t)
	g := testGraph(t)
	root := t.TempDir()

	res, err := s.Reconcile(context.Background(), g, root)
	if err != nil {
		t.Fatalf("Reconcile() error: %v", err)
	}
	if len(res.New) != 4 {
		t.Fatalf("new identifiers = %v, want 4", res.New)
	}
	if res.Roles["AMCHI-TS1"] != workgraph.RoleTransition {
		t.Fatalf("roles = %v", res.Roles)
	}

	transitions, err := s.ListTransitions(context.Background())
	if err != nil {
		t.Fatalf("ListTransitions() error: %v", err)
	}
	if len(transitions) != 1 {
		t.Fatalf("transition rows = %d, want 1", len(transitions))
	}
	ts := transitions[0]
	if ts.Reactant1 != res.IDs["AMCHI-R"] {
		t.Fatalf("reactant_1 = %d, want %d", ts.Reactant1, res.IDs["AMCHI-R"])
	}
	if ts.Reactant2 != nil {
		t.Fatalf("reactant_2 = %v, want NULL", *ts.Reactant2)
	}
	if ts.Product1 != res.IDs["AMCHI-P1"] || ts.Product2 == nil || *ts.Product2 != res.IDs["AMCHI-P2"] {
		t.Fatalf("product fks = %d, %v", ts.Product1, ts.Product2)
	}
	if ts.ScanSpec == "" {
		t.Fatal("scan_spec is empty")
	}

	// Each new node got a working directory with a seed geometry.
	for _, identifier := range res.New {
		seed := filepath.Join(WorkDir(root, identifier), SeedFileName)
		data, err := os.ReadFile(seed)
		if err != nil {
			t.Fatalf("seed file for %s: %v", identifier, err)
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			t.Fatalf("seed for %s missing trailing newline: %q", identifier, data)
		}
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	s := openTestStore(t)
	g := testGraph(t)
	root := t.TempDir()

	first, err := s.Reconcile(context.Background(), g, root)
	if err != nil {
		t.Fatalf("first Reconcile() error: %v", err)
	}
	second, err := s.Reconcile(context.Background(), g, root)
	if err != nil {
		t.Fatalf("second Reconcile() error: %v", err)
	}

	if len(second.New) != 0 {
		t.Fatalf("second pass inserted %v, want nothing", second.New)
	}
	for identifier, id := range first.IDs {
		if second.IDs[identifier] != id {
			t.Fatalf("row id for %s changed: %d -> %d", identifier, id, second.IDs[identifier])
		}
	}

	counts, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if counts.Stationaries != 3 || counts.Transitions != 1 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestReconcile_RestoresMissingSeeds(t *testing.T) {
	s := openTestStore(t)
	g := testGraph(t)
	root := t.TempDir()

	if _, err := s.Reconcile(context.Background(), g, root); err != nil {
		t.Fatalf("first Reconcile() error: %v", err)
	}

	// A seed lost after the commit (crash, manual cleanup) comes back on
	// the next pass even though the row is no longer new; an edited seed
	// is left alone.
	lost := filepath.Join(WorkDir(root, "AMCHI-R"), SeedFileName)
	if err := os.Remove(lost); err != nil {
		t.Fatal(err)
	}
	edited := filepath.Join(WorkDir(root, "AMCHI-P1"), SeedFileName)
	if err := os.WriteFile(edited, []byte("hand-tuned geometry\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := s.Reconcile(context.Background(), g, root)
	if err != nil {
		t.Fatalf("second Reconcile() error: %v", err)
	}
	if len(res.New) != 0 {
		t.Fatalf("second pass inserted %v, want nothing", res.New)
	}

	data, err := os.ReadFile(lost)
	if err != nil {
		t.Fatalf("seed not restored: %v", err)
	}
	if string(data) != "geo r\n" {
		t.Fatalf("restored seed = %q", data)
	}
	data, err = os.ReadFile(edited)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hand-tuned geometry\n" {
		t.Fatalf("edited seed overwritten: %q", data)
	}
}

func TestReconcile_RejectsWideTransition(t *testing.T) {
	s := openTestStore(t)

	tk := chemtest.New()
	for _, n := range []string{"a", "b", "c", "p"} {
		tk.AddSpecies(chemtest.FakeSpecies{Identifier: "AMCHI-" + n, Canonical: "can-" + n, Geometry: "geo " + n}, "raw-"+n)
	}
	tk.AddTransition([]string{"can-a", "can-b", "can-c"}, []string{"can-p"}, chemtest.FakeTransition{
		Identifier: "AMCHI-WIDE", Geometry: "geo wide", Graph: "g-wide",
	})
	tk.Orders["g-wide"] = map[chem.Bond]float64{{A: 0, B: 1}: 0.9}
	tk.Distances["geo wide"] = [][]float64{{0, 1.0}, {1.0, 0}}

	g, err := workgraph.NewBuilder(tk, nil).Build(context.Background(),
		[]string{"raw-a", "raw-b", "raw-c"}, [][]string{{"raw-p"}})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	_, err = s.Reconcile(context.Background(), g, t.TempDir())
	var wide *ErrTooManyNeighbors
	if !errors.As(err, &wide) {
		t.Fatalf("error = %v, want *ErrTooManyNeighbors", err)
	}
	if wide.Reactants != 3 {
		t.Fatalf("reported reactants = %d, want 3", wide.Reactants)
	}

	// The rejection happens before any row is written.
	counts, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if counts.Stationaries != 0 || counts.Transitions != 0 {
		t.Fatalf("counts after rejection = %+v, want zero", counts)
	}
}
