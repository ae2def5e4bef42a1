package testutil

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger writes to stdout rather than t.Log so that goroutines which
// outlive a test can still log safely.
func TestLogger(t *testing.T) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		zap.DebugLevel,
	)
	logger := zap.New(core).Named(t.Name())
	t.Cleanup(func() {
		_ = logger.Sync()
	})
	return logger
}

// ObservedLogger returns a logger whose entries at or above level are
// captured for assertions.
func ObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}
