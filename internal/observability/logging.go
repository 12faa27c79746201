// Package observability owns process-wide logging for the CLI.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the process-wide logger. It is a no-op until Init runs,
// so packages can log unconditionally during early startup.
var CLILogger = zap.NewNop()

// Init builds the CLI logger at the given level ("debug", "info",
// "warn", "error"). Output goes to stderr so stdout stays clean for
// JSONL report records.
func Init(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	CLILogger = zap.New(core)
	return nil
}

// Sync flushes buffered log entries. Safe to call at exit.
func Sync() {
	_ = CLILogger.Sync()
}
