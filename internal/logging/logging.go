// Package logging builds the zap loggers used by the CLI and services.
package logging

import (
	"strings"

	"gobunch/internal/errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps LOG_LEVEL names to zap levels. TRACE is treated as DEBUG.
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "ERROR":
		return zapcore.ErrorLevel, nil
	case "WARN", "WARNING":
		return zapcore.WarnLevel, nil
	case "DEBUG", "TRACE":
		return zapcore.DebugLevel, nil
	default:
		return zapcore.InfoLevel, errors.ConfigInvalid("unknown log level " + name)
	}
}

// New builds a production logger at the given level name. Verbose forces
// debug output regardless of level.
func New(level string, verbose bool) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}
	return logger, nil
}
