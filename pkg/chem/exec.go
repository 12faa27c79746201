package chem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// ExecToolkit talks to the external chemistry helper binary over JSON on
// stdin/stdout, one subcommand per Toolkit operation:
//
//	amx canonicalize  {"structure": ...}            -> {"identifier": ..., "canonical": ...}
//	amx geometry      {"structure": ...}            -> {"xyz": ...}
//	amx transitions   {"reactants": [...], ...}     -> {"transitions": [...]}
//	amx bond-orders   {"graph": ...}                -> {"bonds": [{"a":..,"b":..,"order":..}]}
//	amx distances     {"xyz": ...}                  -> {"matrix": [[...]]}
//
// The helper exits non-zero with a reason on stderr for malformed input.
type ExecToolkit struct {
	// Binary is the helper executable name or path. Defaults to "amx".
	Binary string
}

const defaultToolkitBinary = "amx"

func NewExecToolkit(binary string) *ExecToolkit {
	if strings.TrimSpace(binary) == "" {
		binary = defaultToolkitBinary
	}
	return &ExecToolkit{Binary: binary}
}

func (t *ExecToolkit) run(ctx context.Context, subcommand string, request, response any) error {
	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", subcommand, err)
	}

	cmd := exec.CommandContext(ctx, t.Binary, subcommand)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return fmt.Errorf("%s %s failed: %w: %s", t.Binary, subcommand, err, reason)
	}
	if stdout.Len() == 0 {
		return fmt.Errorf("%s %s returned empty output", t.Binary, subcommand)
	}
	if err := json.Unmarshal(stdout.Bytes(), response); err != nil {
		return fmt.Errorf("decode %s response: %w", subcommand, err)
	}
	return nil
}

func (t *ExecToolkit) Canonicalize(ctx context.Context, structure string) (string, string, error) {
	req := struct {
		Structure string `json:"structure"`
	}{Structure: structure}
	var resp struct {
		Identifier string `json:"identifier"`
		Canonical  string `json:"canonical"`
	}
	if err := t.run(ctx, "canonicalize", req, &resp); err != nil {
		return "", "", &StructureError{Input: structure, Err: err}
	}
	if resp.Identifier == "" {
		return "", "", &StructureError{Input: structure, Err: fmt.Errorf("empty identifier")}
	}
	return resp.Identifier, resp.Canonical, nil
}

func (t *ExecToolkit) Geometry(ctx context.Context, structure string) (string, error) {
	req := struct {
		Structure string `json:"structure"`
	}{Structure: structure}
	var resp struct {
		XYZ string `json:"xyz"`
	}
	if err := t.run(ctx, "geometry", req, &resp); err != nil {
		return "", &StructureError{Input: structure, Err: err}
	}
	return resp.XYZ, nil
}

func (t *ExecToolkit) GenerateTransitions(ctx context.Context, reactants, products []string) ([]TransitionStructure, error) {
	req := struct {
		Reactants []string `json:"reactants"`
		Products  []string `json:"products"`
	}{Reactants: reactants, Products: products}
	var resp struct {
		Transitions []struct {
			Identifier string `json:"identifier"`
			XYZ        string `json:"xyz"`
			Graph      string `json:"graph"`
		} `json:"transitions"`
	}
	if err := t.run(ctx, "transitions", req, &resp); err != nil {
		return nil, &GenerationError{Reactants: reactants, Products: products, Err: err}
	}

	out := make([]TransitionStructure, 0, len(resp.Transitions))
	for _, ts := range resp.Transitions {
		out = append(out, TransitionStructure{
			Identifier: ts.Identifier,
			Geometry:   ts.XYZ,
			Graph:      ts.Graph,
		})
	}
	return out, nil
}

func (t *ExecToolkit) BondOrders(ctx context.Context, graph string) (map[Bond]float64, error) {
	req := struct {
		Graph string `json:"graph"`
	}{Graph: graph}
	var resp struct {
		Bonds []struct {
			A     int     `json:"a"`
			B     int     `json:"b"`
			Order float64 `json:"order"`
		} `json:"bonds"`
	}
	if err := t.run(ctx, "bond-orders", req, &resp); err != nil {
		return nil, err
	}

	orders := make(map[Bond]float64, len(resp.Bonds))
	for _, b := range resp.Bonds {
		orders[Bond{A: b.A, B: b.B}] = b.Order
	}
	return orders, nil
}

func (t *ExecToolkit) DistanceMatrix(ctx context.Context, geometry string) ([][]float64, error) {
	req := struct {
		XYZ string `json:"xyz"`
	}{XYZ: geometry}
	var resp struct {
		Matrix [][]float64 `json:"matrix"`
	}
	if err := t.run(ctx, "distances", req, &resp); err != nil {
		return nil, err
	}
	return resp.Matrix, nil
}

var _ Toolkit = (*ExecToolkit)(nil)
