package telemetry

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// NewLogger builds the process logger. level is any zap level name; format
// is console or json.
func NewLogger(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	switch format {
	case "", FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	case FormatJSON:
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = lvl
	}
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// Logr adapts z for components that take a logr.Logger.
func Logr(z *zap.Logger) logr.Logger {
	return zapr.NewLogger(z)
}
