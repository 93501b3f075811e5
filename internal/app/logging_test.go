package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/dshills/livemark/internal/config"
)

func TestBuildLoggerNopWithoutPath(t *testing.T) {
	log, err := buildLogger(config.LogConfig{Level: "info"}, "")
	if err != nil {
		t.Fatalf("buildLogger: %v", err)
	}
	if ce := log.Check(zapcore.InfoLevel, "m"); ce != nil {
		t.Error("pathless logger is not a nop")
	}
}

func TestBuildLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := buildLogger(config.LogConfig{Level: "info", Path: path}, "")
	if err != nil {
		t.Fatalf("buildLogger: %v", err)
	}
	log.Info("hello from livemark")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from livemark") {
		t.Errorf("log file %q missing entry", string(data))
	}
}

func TestBuildLoggerLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := buildLogger(config.LogConfig{Level: "info", Path: path}, "debug")
	if err != nil {
		t.Fatalf("buildLogger: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("override to debug not applied")
	}

	log, err = buildLogger(config.LogConfig{Level: "info", Path: path}, "")
	if err != nil {
		t.Fatalf("buildLogger: %v", err)
	}
	if log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("configured info level not applied")
	}
}

func TestBuildLoggerBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if _, err := buildLogger(config.LogConfig{Level: "chatty", Path: path}, ""); err == nil {
		t.Error("invalid level accepted")
	}
}
