package chem

import (
	"errors"
	"fmt"
	"testing"
)

func TestBond_Shared(t *testing.T) {
	tests := []struct {
		a, b   Bond
		want   int
		wantOK bool
	}{
		{Bond{A: 0, B: 1}, Bond{A: 1, B: 2}, 1, true},
		{Bond{A: 0, B: 1}, Bond{A: 2, B: 0}, 0, true},
		{Bond{A: 0, B: 1}, Bond{A: 2, B: 3}, 0, false},
		{Bond{A: 0, B: 1}, Bond{A: 0, B: 1}, 0, false}, // same bond
		{Bond{A: 0, B: 1}, Bond{A: 1, B: 0}, 0, false}, // same bond, flipped
	}
	for _, tt := range tests {
		got, ok := tt.a.Shared(tt.b)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("%v.Shared(%v) = %d, %v; want %d, %v", tt.a, tt.b, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestBond_Other(t *testing.T) {
	b := Bond{A: 3, B: 7}
	if b.Other(3) != 7 || b.Other(7) != 3 {
		t.Fatalf("Other() = %d, %d", b.Other(3), b.Other(7))
	}
}

func TestErrorClassification(t *testing.T) {
	gen := fmt.Errorf("build: %w", &GenerationError{
		Reactants: []string{"a"},
		Products:  []string{"b"},
		Err:       errors.New("no path"),
	})
	if !IsGenerationFailure(gen) {
		t.Fatal("wrapped GenerationError not detected")
	}
	if IsStructureError(gen) {
		t.Fatal("GenerationError misclassified as StructureError")
	}

	str := fmt.Errorf("canonicalize: %w", &StructureError{Input: "x(", Err: errors.New("parse")})
	if !IsStructureError(str) {
		t.Fatal("wrapped StructureError not detected")
	}
	if IsGenerationFailure(str) {
		t.Fatal("StructureError misclassified as generation failure")
	}
}
