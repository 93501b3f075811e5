package app

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/livemark/internal/config"
)

// buildLogger constructs the application logger. Without a configured log
// file the logger is a nop: the screen owns the terminal while the
// application runs, so stderr is not a safe sink.
func buildLogger(cfg config.LogConfig, override string) (*zap.Logger, error) {
	if cfg.Path == "" {
		return zap.NewNop(), nil
	}

	name := cfg.Level
	if override != "" {
		name = override
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", name, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{cfg.Path}
	zcfg.ErrorOutputPaths = []string{cfg.Path}

	log, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("open log %q: %w", cfg.Path, err)
	}
	return log, nil
}
