// Package config loads runtime configuration for the preview engine and the
// demo host from TOML. Values not present in the file keep their defaults;
// a zero-value path loads pure defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config errors.
var (
	// ErrNotFound is returned when the config file does not exist.
	ErrNotFound = errors.New("config file not found")
	// ErrInvalid is returned when a loaded value fails validation.
	ErrInvalid = errors.New("invalid config")
)

// Renderer selection values for DiagramConfig.Renderer.
const (
	RendererNone    = "none"
	RendererCommand = "command"
	RendererHTTP    = "http"
	RendererScript  = "script"
)

// Config is the full runtime configuration.
type Config struct {
	Preview PreviewConfig `toml:"preview"`
	Diagram DiagramConfig `toml:"diagram"`
	Theme   ThemeConfig   `toml:"theme"`
	Log     LogConfig     `toml:"log"`
}

// PreviewConfig controls decoration behavior.
type PreviewConfig struct {
	// MarginLines is how many lines beyond the viewport are scanned for
	// diagram blocks, each side.
	MarginLines int `toml:"margin_lines"`

	// Highlight enables syntax highlighting inside fenced code blocks.
	Highlight bool `toml:"highlight"`
}

// DiagramConfig selects and parameterizes the diagram renderer.
type DiagramConfig struct {
	// Languages lists fence info strings treated as diagram blocks.
	Languages []string `toml:"languages"`

	// Renderer is one of "none", "command", "http", "script".
	Renderer string `toml:"renderer"`

	// Command and Args run an external CLI renderer (renderer = "command").
	Command string   `toml:"command"`
	Args    []string `toml:"args"`

	// ServiceURL and Format address a Kroki-style service (renderer = "http").
	ServiceURL string `toml:"service_url"`
	Format     string `toml:"format"`

	// ScriptPath names a Lua render script (renderer = "script").
	ScriptPath string `toml:"script_path"`

	// TimeoutMS bounds one render; Concurrency bounds parallel renders.
	TimeoutMS   int `toml:"timeout_ms"`
	Concurrency int `toml:"concurrency"`
}

// ThemeConfig points at an optional theme override file.
type ThemeConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// LogConfig controls the demo host's log output. The engine itself logs
// wherever the host points it.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// Path is the log file; empty discards.
	Path string `toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Preview: PreviewConfig{
			MarginLines: 100,
			Highlight:   true,
		},
		Diagram: DiagramConfig{
			Languages:   []string{"mermaid"},
			Renderer:    RendererCommand,
			Command:     "mmdc",
			Format:      "svg",
			TimeoutMS:   10000,
			Concurrency: 4,
		},
		Theme: ThemeConfig{Watch: true},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns pure defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate checks value ranges and enums.
func (c *Config) Validate() error {
	if c.Preview.MarginLines < 0 {
		return fmt.Errorf("%w: preview.margin_lines %d is negative", ErrInvalid, c.Preview.MarginLines)
	}
	switch c.Diagram.Renderer {
	case "", RendererNone, RendererCommand, RendererHTTP, RendererScript:
	default:
		return fmt.Errorf("%w: diagram.renderer %q", ErrInvalid, c.Diagram.Renderer)
	}
	if c.Diagram.TimeoutMS <= 0 {
		return fmt.Errorf("%w: diagram.timeout_ms %d", ErrInvalid, c.Diagram.TimeoutMS)
	}
	if c.Diagram.Concurrency < 1 {
		return fmt.Errorf("%w: diagram.concurrency %d", ErrInvalid, c.Diagram.Concurrency)
	}
	for _, lang := range c.Diagram.Languages {
		if lang == "" {
			return fmt.Errorf("%w: diagram.languages contains an empty entry", ErrInvalid)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// RenderTimeout returns the diagram timeout as a duration.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Diagram.TimeoutMS) * time.Millisecond
}
