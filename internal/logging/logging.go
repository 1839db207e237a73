// Package logging builds the zap logger shared by the CLI and the engine.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger flavour.
type Options struct {
	// Level is a zap level name ("debug", "info", "warn", "error"). Empty
	// means info.
	Level string
	// Development switches to the human-readable console config.
	Development bool
	// Encoding overrides the encoder ("json" or "console").
	Encoding string
}

// New builds a logger writing to stderr.
func New(o Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if o.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	if o.Level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(o.Level))
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	switch o.Encoding {
	case "":
	case "json", "console":
		cfg.Encoding = o.Encoding
	default:
		return nil, fmt.Errorf("logging: unknown encoding %q", o.Encoding)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	return l, nil
}
