// Package logging builds the zap loggers used by the CLI and the daemon.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where and how much to log.
type Options struct {
	// Level is a zap level name ("debug", "info", "warn", "error").
	Level string
	// Verbose forces debug level.
	Verbose bool
	// File switches to JSON output appended to this path.
	File string
}

// ParseLevel converts a level name, defaulting to info when empty.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return lvl, nil
}

// New builds a logger. Foreground commands get a console encoder on
// stderr; with File set, JSON lines with ISO8601 timestamps go to the file.
func New(opts Options) (*zap.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		lvl = zapcore.DebugLevel
	}

	if opts.File == "" {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.DisableStacktrace = true
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		return config.Build()
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{opts.File}
	config.ErrorOutputPaths = []string{opts.File}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logger, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
