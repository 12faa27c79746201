package harvest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeLog(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calc.log")
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScalar_SingleMatch(t *testing.T) {
	path := writeLog(t, `
some preamble
FINAL SINGLE POINT ENERGY      -154.123456789012
trailing content
`)
	v, found, err := Scalar(path, "FINAL SINGLE POINT ENERGY")
	if err != nil {
		t.Fatalf("Scalar() error: %v", err)
	}
	if !found {
		t.Fatal("expected a match")
	}
	if v != -154.123456789012 {
		t.Fatalf("value = %v", v)
	}
}

func TestScalar_RightmostField(t *testing.T) {
	// Units or other trailing non-numeric tokens must not shadow the
	// number; the rightmost parseable field wins.
	path := writeLog(t, "Zero point energy  0.052  Eh\n")
	v, found, err := Scalar(path, "Zero point energy")
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if v != 0.052 {
		t.Fatalf("value = %v", v)
	}
}

func TestScalar_ZeroMatches(t *testing.T) {
	path := writeLog(t, "nothing relevant here\n")
	_, found, err := Scalar(path, "FINAL SINGLE POINT ENERGY")
	if err != nil {
		t.Fatalf("Scalar() error: %v", err)
	}
	if found {
		t.Fatal("no marker line, found must be false")
	}
}

func TestScalar_MultipleMatchesIsAmbiguous(t *testing.T) {
	path := writeLog(t, `
FINAL SINGLE POINT ENERGY -1.0
FINAL SINGLE POINT ENERGY -2.0
`)
	_, found, err := Scalar(path, "FINAL SINGLE POINT ENERGY")
	if err != nil {
		t.Fatalf("Scalar() error: %v", err)
	}
	if found {
		t.Fatal("two marker lines must be treated as ambiguous, not resolved")
	}
}

func TestScalar_MissingFile(t *testing.T) {
	_, found, err := Scalar(filepath.Join(t.TempDir(), "absent.log"), "marker")
	if err != nil {
		t.Fatalf("Scalar() error: %v", err)
	}
	if found {
		t.Fatal("missing file must read as not-found")
	}
}

func TestScalar_NoNumericField(t *testing.T) {
	path := writeLog(t, "FINAL SINGLE POINT ENERGY not converged\n")
	_, _, err := Scalar(path, "FINAL SINGLE POINT ENERGY")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if pe.Marker != "FINAL SINGLE POINT ENERGY" {
		t.Fatalf("marker = %q", pe.Marker)
	}
}
