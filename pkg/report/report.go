// Package report emits JSONL run records: one line per discovery,
// submission, and harvest event, plus a closing summary, so operators
// can follow a run and machine-consume its outcome.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Record types emitted by the writer.
const (
	TypeDiscovery  = "discovery"
	TypeSubmission = "submission"
	TypeHarvest    = "harvest"
	TypeSummary    = "summary"
)

// DiscoveryRecord reports one newly reconciled node.
type DiscoveryRecord struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	Identifier string `json:"identifier"`
	Role       string `json:"role"`
	Timestamp  string `json:"timestamp"`
}

// SubmissionRecord reports one job's terminal outcome.
type SubmissionRecord struct {
	Type       string `json:"type"`
	RunID      string `json:"run_id"`
	Identifier string `json:"identifier"`
	Failed     bool   `json:"failed"`
	Reason     string `json:"reason,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// HarvestRecord reports one harvest pass.
type HarvestRecord struct {
	Type        string `json:"type"`
	RunID       string `json:"run_id"`
	Scanned     int    `json:"scanned"`
	Updated     int    `json:"updated"`
	FieldsSet   int    `json:"fields_set"`
	Ambiguous   int    `json:"ambiguous"`
	ParseErrors int    `json:"parse_errors"`
	Timestamp   string `json:"timestamp"`
}

// SummaryRecord closes a run.
type SummaryRecord struct {
	Type          string `json:"type"`
	RunID         string `json:"run_id"`
	NewNodes      int    `json:"new_nodes"`
	JobsSubmitted int    `json:"jobs_submitted"`
	JobsFailed    int    `json:"jobs_failed"`
	FieldsSet     int    `json:"fields_set"`
	Ambiguous     int    `json:"ambiguous"`
	DurationMS    int64  `json:"duration_ms"`
	Timestamp     string `json:"timestamp"`
}

// Writer emits records as newline-delimited JSON. Writes are serialized
// so concurrent callers never interleave lines.
type Writer struct {
	w     io.Writer
	runID string
	mu    sync.Mutex
	now   func() time.Time
}

func NewWriter(w io.Writer, runID string) *Writer {
	return &Writer{w: w, runID: runID, now: time.Now}
}

func (w *Writer) write(record any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal report record: %w", err)
	}
	b = append(b, '\n')
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("write report record: %w", err)
	}
	return nil
}

func (w *Writer) timestamp() string {
	return w.now().UTC().Format(time.RFC3339)
}

func (w *Writer) WriteDiscovery(identifier, role string) error {
	return w.write(DiscoveryRecord{
		Type:       TypeDiscovery,
		RunID:      w.runID,
		Identifier: identifier,
		Role:       role,
		Timestamp:  w.timestamp(),
	})
}

func (w *Writer) WriteSubmission(identifier string, failed bool, reason string) error {
	return w.write(SubmissionRecord{
		Type:       TypeSubmission,
		RunID:      w.runID,
		Identifier: identifier,
		Failed:     failed,
		Reason:     reason,
		Timestamp:  w.timestamp(),
	})
}

func (w *Writer) WriteHarvest(scanned, updated, fieldsSet, ambiguous, parseErrors int) error {
	return w.write(HarvestRecord{
		Type:        TypeHarvest,
		RunID:       w.runID,
		Scanned:     scanned,
		Updated:     updated,
		FieldsSet:   fieldsSet,
		Ambiguous:   ambiguous,
		ParseErrors: parseErrors,
		Timestamp:   w.timestamp(),
	})
}

func (w *Writer) WriteSummary(s SummaryRecord) error {
	s.Type = TypeSummary
	s.RunID = w.runID
	s.Timestamp = w.timestamp()
	return w.write(s)
}
