// Package logger wraps zap with the process-wide logging setup.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds the application logger. Log is a no-op logger until Init
// succeeds, so it is always safe to call.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger backed by zap.NewNop.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces Log with a production JSON logger at the given level
// (debug, info, warn, error; case-insensitive).
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = zl
	return nil
}
