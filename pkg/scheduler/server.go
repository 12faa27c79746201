package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultBinary = "hq"

	serverLogName = "server.log"

	// readinessAttempts bounds the startup poll; past it the run fails
	// with a StartupError.
	readinessAttempts = 10
	readinessInterval = 2 * time.Second
)

// staleFiles are leftovers from a dead server that block a fresh start.
var staleFiles = []string{"access-token", "lock", "server.pid"}

// Server manages the scheduler server process for one pipeline run.
type Server struct {
	// Dir is the server state directory (lock, token, log).
	Dir string

	// Binary is the scheduler executable. Defaults to "hq".
	Binary string

	// ReadyAttempts and ReadyInterval bound the readiness poll.
	ReadyAttempts int
	ReadyInterval time.Duration

	runner Runner
	logger *zap.Logger
}

func NewServer(dir, binary string, runner Runner, logger *zap.Logger) *Server {
	if binary == "" {
		binary = defaultBinary
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Dir:           dir,
		Binary:        binary,
		ReadyAttempts: readinessAttempts,
		ReadyInterval: readinessInterval,
		runner:        runner,
		logger:        logger,
	}
}

// EnsureStarted launches the server process (clearing stale lock and
// lease files first) and polls its status command until it responds,
// with bounded retries. Exhausting the retries is fatal.
func (s *Server) EnsureStarted(ctx context.Context) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create server dir: %w", err)
	}

	logPath := filepath.Join(s.Dir, serverLogName)
	if err := os.Remove(logPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear old server log: %w", err)
	}
	for _, name := range staleFiles {
		stale := filepath.Join(s.Dir, name)
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clear stale %s: %w", name, err)
		}
	}

	s.logger.Info("starting scheduler server", zap.String("dir", s.Dir))
	if err := s.runner.Start(ctx, logPath, s.Binary, "server", "start", "--server-dir", s.Dir); err != nil {
		return &StartupError{Attempts: 0, Err: err}
	}

	return s.waitReady(ctx)
}

// waitReady polls a lightweight status command until the server answers.
func (s *Server) waitReady(ctx context.Context) error {
	attempts := s.ReadyAttempts
	if attempts < 1 {
		attempts = readinessAttempts
	}
	interval := s.ReadyInterval
	if interval <= 0 {
		interval = readinessInterval
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(attempts-1)),
		ctx)

	attempt := 0
	probe := func() error {
		attempt++
		_, err := s.runner.Run(ctx, s.Binary, "alloc", "list")
		if err != nil {
			s.logger.Debug("scheduler server not ready",
				zap.Int("attempt", attempt),
				zap.Error(err))
		}
		return err
	}

	if err := backoff.Retry(probe, policy); err != nil {
		return &StartupError{Attempts: attempt, Err: err}
	}
	s.logger.Info("scheduler server ready", zap.Int("attempts", attempt))
	return nil
}
