// Package scheduler drives the HyperQueue-style cluster scheduler: it
// ensures a live server, requests allocation pools (deduplicated), and
// submits dependency-ordered job batches, blocking until the batch
// drains.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes scheduler binary invocations. The seam exists so tests
// can observe and fake every external call.
type Runner interface {
	// Run executes the command and returns combined stdout.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// Start launches the command detached, redirecting its output to
	// logPath, and returns without waiting.
	Start(ctx context.Context, logPath string, name string, args ...string) error
}

// ExecRunner runs real processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return stdout.Bytes(), fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, reason)
	}
	return stdout.Bytes(), nil
}

func (ExecRunner) Start(ctx context.Context, logPath string, name string, args ...string) error {
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create server log: %w", err)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return fmt.Errorf("start %s: %w", name, err)
	}

	// The child owns its lifetime; reap it in the background so it does
	// not linger as a zombie while the pipeline runs.
	go func() {
		_ = cmd.Wait()
		_ = logFile.Close()
	}()
	return nil
}

var _ Runner = ExecRunner{}
