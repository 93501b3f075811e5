package diagram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrRendererUnavailable is returned when the configured renderer cannot
// run at all. The pipeline probes once and caches the answer; it never
// retries a renderer that failed to load.
var ErrRendererUnavailable = errors.New("diagram renderer unavailable")

// Renderer turns normalized diagram source into rendered output bytes.
type Renderer interface {
	// Name identifies the renderer in logs and error messages.
	Name() string
	// Available reports whether the renderer can run. Called once per
	// pipeline; a non-nil error is cached.
	Available() error
	// Render produces output for the given source, honoring ctx.
	Render(ctx context.Context, source string) ([]byte, error)
}

// Pipeline runs diagram renders asynchronously. Each Render call returns a
// Task immediately; a bounded number of renders run concurrently.
type Pipeline struct {
	renderer Renderer
	log      *zap.Logger
	timeout  time.Duration
	sem      chan struct{}

	probeOnce sync.Once
	probeErr  error
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the pipeline's logger.
func WithPipelineLogger(log *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithTimeout bounds each render. Zero disables the bound.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithMaxConcurrent bounds simultaneous renders.
func WithMaxConcurrent(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.sem = make(chan struct{}, n)
		}
	}
}

// NewPipeline creates a Pipeline over the given renderer.
func NewPipeline(r Renderer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		renderer: r,
		log:      zap.NewNop(),
		timeout:  10 * time.Second,
		sem:      make(chan struct{}, 4),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Render starts rendering source and returns its task. The source is
// normalized first; renderers are commonly whitespace-sensitive. When the
// renderer is unavailable the task resolves immediately, with no goroutine
// spawned.
func (p *Pipeline) Render(ctx context.Context, source string) *Task {
	p.probeOnce.Do(func() {
		p.probeErr = p.renderer.Available()
		if p.probeErr != nil {
			p.log.Warn("diagram renderer unavailable",
				zap.String("renderer", p.renderer.Name()),
				zap.Error(p.probeErr),
			)
		}
	})
	if p.probeErr != nil {
		return failedTask(fmt.Sprintf("%v: %v", ErrRendererUnavailable, p.probeErr))
	}

	norm := NormalizeSource(source)
	ctx, cancel := context.WithCancel(ctx)
	t := newTask(cancel)

	go p.run(ctx, cancel, t, norm)
	return t
}

func (p *Pipeline) run(ctx context.Context, cancel context.CancelFunc, t *Task, source string) {
	defer cancel()

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		t.complete(Result{State: StateFailed, Err: "render canceled"})
		return
	}

	if p.timeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, p.timeout)
		defer tcancel()
	}

	start := time.Now()
	out, err := p.renderer.Render(ctx, source)
	if err != nil {
		p.log.Debug("diagram render failed",
			zap.String("renderer", p.renderer.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		t.complete(Result{State: StateFailed, Err: err.Error()})
		return
	}

	p.log.Debug("diagram render done",
		zap.String("renderer", p.renderer.Name()),
		zap.Duration("elapsed", time.Since(start)),
	)
	t.complete(Result{State: StateRendered, Lines: splitOutput(out)})
}

func splitOutput(out []byte) []string {
	s := strings.TrimRight(string(out), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// NormalizeSource prepares diagram source for a renderer: outer whitespace
// trimmed, line endings normalized to LF, leading tabs expanded to four
// spaces.
func NormalizeSource(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "\t") {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		n := 0
		for n < len(line) && line[n] == '\t' {
			n++
		}
		if n > 0 {
			lines[i] = strings.Repeat("    ", n) + line[n:]
		}
	}
	return strings.Join(lines, "\n")
}
