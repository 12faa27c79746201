// Package harvest extracts scalar results from free-form calculation
// logs into the persistent store. Extraction is tolerant by design: an
// ambiguous log leaves a field unset rather than guessing, and only a
// log that violates the format assumption outright fails loudly.
package harvest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseError reports a marker line whose expected numeric field did not
// parse. This is a log-format assumption violation, not an expected
// omission, so it is surfaced instead of yielding "unknown".
type ParseError struct {
	File   string
	Marker string
	Line   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no numeric field on marker line (file %s, marker %q): %q", e.File, e.Marker, e.Line)
}

// Scalar searches the log file for lines containing marker.
//
// Exactly one matching line yields its rightmost float-parseable field
// and found=true. Zero matches, more than one match, or a missing file
// yield found=false with no error: both are expected while jobs are
// still running or when a log is ambiguous. A single match carrying no
// parseable number returns a *ParseError.
func Scalar(path, marker string) (value float64, found bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	var matches []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, marker) {
			matches = append(matches, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, false, fmt.Errorf("read log %s: %w", path, err)
	}

	if len(matches) != 1 {
		return 0, false, nil
	}

	line := matches[0]
	fields := strings.Fields(line)
	for i := len(fields) - 1; i >= 0; i-- {
		if v, err := strconv.ParseFloat(fields[i], 64); err == nil {
			return v, true, nil
		}
	}
	return 0, false, &ParseError{File: path, Marker: marker, Line: line}
}
