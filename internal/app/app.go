// Package app wires the livemark subsystems into a terminal application:
// configuration, logging, theme, render pipeline, decoration session, and
// the tcell screen loop.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/livemark/internal/config"
	"github.com/dshills/livemark/internal/decor"
	"github.com/dshills/livemark/internal/diagram"
	"github.com/dshills/livemark/internal/engine"
	"github.com/dshills/livemark/internal/event"
	"github.com/dshills/livemark/internal/plugin"
	"github.com/dshills/livemark/internal/style"
)

// ErrQuit signals a clean user-requested exit from the run loop.
var ErrQuit = errors.New("quit")

// InitError wraps a component initialization failure.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty uses
	// built-in defaults.
	ConfigPath string

	// ThemePath overrides the theme file named in the configuration.
	ThemePath string

	// File is the Markdown file to open. Empty starts an unnamed buffer.
	File string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// ReadOnly rejects every edit operation.
	ReadOnly bool
}

// App owns the application lifecycle. Create with New, attach a screen
// with SetScreen, then Run.
type App struct {
	opts Options

	cfg   config.Config
	log   *zap.Logger
	bus   *event.Bus
	theme *style.Theme

	watcher  *style.Watcher
	renderer diagram.Renderer
	session  *engine.Session
	editor   *Editor

	screen tcell.Screen
	status string

	lastKey frameKey
	lastSet *decor.Set

	running  atomic.Bool
	shutdown atomic.Bool
	done     chan struct{}
}

// New builds the application and initializes every subsystem except the
// screen, which the caller attaches separately so tests can inject a
// simulation screen.
func New(opts Options) (*App, error) {
	a := &App{
		opts: opts,
		done: make(chan struct{}),
	}
	if err := a.bootstrap(); err != nil {
		return nil, err
	}
	return a, nil
}

// bootstrap initializes components in dependency order.
func (a *App) bootstrap() error {
	// 1. Configuration.
	cfg, err := config.Load(a.opts.ConfigPath)
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return &InitError{Component: "config", Err: err}
		}
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	a.cfg = cfg

	// 2. Logging.
	log, err := buildLogger(cfg.Log, a.opts.LogLevel)
	if err != nil {
		return &InitError{Component: "logger", Err: err}
	}
	a.log = log

	// 3. Event bus.
	a.bus = event.NewBus(event.WithLogger(a.log))
	a.subscribe()

	// 4. Theme, with optional hot reload.
	if err := a.loadTheme(); err != nil {
		return &InitError{Component: "theme", Err: err}
	}

	// 5. Diagram renderer and pipeline.
	renderer, err := rendererFor(cfg.Diagram)
	if err != nil {
		return &InitError{Component: "diagram renderer", Err: err}
	}
	a.renderer = renderer
	pipeline := diagram.NewPipeline(renderer,
		diagram.WithPipelineLogger(a.log),
		diagram.WithTimeout(cfg.RenderTimeout()),
		diagram.WithMaxConcurrent(cfg.Diagram.Concurrency),
	)

	// 6. Decoration session.
	a.session = engine.New(
		engine.WithScanner(diagram.NewScanner(
			diagram.WithLanguages(cfg.Diagram.Languages...),
			diagram.WithMargin(cfg.Preview.MarginLines),
			diagram.WithScannerLogger(a.log),
		)),
		engine.WithPipeline(pipeline),
		engine.WithBus(a.bus),
		engine.WithLogger(a.log),
		engine.WithHighlight(cfg.Preview.Highlight),
	)

	// 7. Editor buffer.
	editor, err := openEditor(a.opts.File, a.opts.ReadOnly, a.session, a.bus, a.log)
	if err != nil {
		return &InitError{Component: "editor", Err: err}
	}
	a.editor = editor

	a.log.Info("application initialized",
		zap.String("file", a.opts.File),
		zap.String("renderer", renderer.Name()),
		zap.Strings("diagram_languages", cfg.Diagram.Languages),
	)
	return nil
}

// loadTheme resolves the theme path, loads it, and starts the file watcher
// when watching is enabled. A missing theme file falls back to built-in
// styles.
func (a *App) loadTheme() error {
	path := a.cfg.Theme.Path
	if a.opts.ThemePath != "" {
		path = a.opts.ThemePath
	}
	if path == "" {
		a.theme = style.NewTheme()
		return nil
	}

	theme, err := style.LoadTheme(path)
	if err != nil {
		if os.IsNotExist(err) {
			a.log.Warn("theme file missing, using defaults", zap.String("path", path))
			a.theme = style.NewTheme()
			return nil
		}
		return err
	}
	a.theme = theme

	if !a.cfg.Theme.Watch {
		return nil
	}
	watcher, err := style.WatchTheme(path, theme,
		style.WithWatchLogger(a.log),
		style.WithReloadNotify(a.onThemeReload),
	)
	if err != nil {
		a.log.Warn("theme watch unavailable", zap.Error(err))
		return nil
	}
	a.watcher = watcher
	return nil
}

// onThemeReload runs on the watcher goroutine; it nudges the run loop so
// the next frame paints with the reloaded styles.
func (a *App) onThemeReload() {
	a.bus.Publish(event.TopicThemeChanged, nil)
	if a.running.Load() && a.screen != nil {
		_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
}

// subscribe registers the application's bus handlers.
func (a *App) subscribe() {
	_, _ = a.bus.Subscribe(event.TopicBlockEdit, func(ev event.Event) {
		if be, ok := ev.Payload.(engine.BlockEdit); ok && a.editor != nil {
			a.editor.MoveTo(be.Offset)
		}
	})
	_, _ = a.bus.Subscribe(event.Topic("preview.**"), func(ev event.Event) {
		a.log.Debug("preview event", zap.String("topic", ev.Topic.String()))
	})
	_, _ = a.bus.Subscribe(event.TopicDecorationDrop, func(ev event.Event) {
		if d, ok := ev.Payload.(engine.Drop); ok {
			a.log.Debug("decoration dropped",
				zap.String("instruction", d.Instruction.String()),
				zap.String("reason", d.Reason))
		}
	})
}

// rendererFor selects the diagram renderer named by the configuration.
func rendererFor(cfg config.DiagramConfig) (diagram.Renderer, error) {
	switch cfg.Renderer {
	case config.RendererCommand:
		return &diagram.CommandRenderer{Command: cfg.Command, Args: cfg.Args}, nil
	case config.RendererHTTP:
		r := &diagram.HTTPRenderer{BaseURL: cfg.ServiceURL, Format: cfg.Format}
		if len(cfg.Languages) > 0 {
			r.Diagram = cfg.Languages[0]
		}
		return r, nil
	case config.RendererScript:
		r, err := plugin.NewScriptRendererFile(filepath.Base(cfg.ScriptPath), cfg.ScriptPath)
		if err != nil {
			return nil, err
		}
		return r, nil
	case config.RendererNone:
		return &diagram.CommandRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}
}

// SetScreen attaches the terminal screen. Must be called before Run.
func (a *App) SetScreen(s tcell.Screen) {
	a.screen = s
}

// Run initializes the screen and processes events until quit or Shutdown.
func (a *App) Run() error {
	if a.screen == nil {
		return errors.New("no screen attached")
	}
	if err := a.screen.Init(); err != nil {
		return fmt.Errorf("screen init: %w", err)
	}
	a.running.Store(true)
	defer a.running.Store(false)
	defer func() {
		if a.lastSet != nil {
			teardownWidgets(a.lastSet)
			a.lastSet = nil
		}
	}()

	a.screen.EnablePaste()
	a.draw()

	for {
		select {
		case <-a.done:
			return nil
		default:
		}

		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		switch tev := ev.(type) {
		case *tcell.EventKey:
			if err := a.handleKey(tev); err != nil {
				if errors.Is(err, ErrQuit) {
					return ErrQuit
				}
				a.status = err.Error()
				a.log.Warn("key handling failed", zap.Error(err))
			}
		case *tcell.EventResize:
			a.screen.Sync()
		case *tcell.EventPaste:
			// Bracketed paste arrives as individual key events between
			// the start and end markers; nothing to do here.
			continue
		case *tcell.EventInterrupt:
			// Posted by background reloads purely to trigger a repaint.
		}
		a.draw()
	}
}

// Shutdown releases every resource. Safe to call more than once and from
// any goroutine.
func (a *App) Shutdown() {
	if !a.shutdown.CompareAndSwap(false, true) {
		return
	}
	close(a.done)

	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if c, ok := a.renderer.(interface{ Close() }); ok {
		c.Close()
	}
	if a.screen != nil && a.running.Load() {
		a.screen.Fini()
	}
	if a.log != nil {
		a.log.Info("application shut down")
		_ = a.log.Sync()
	}
}
