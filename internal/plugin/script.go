// Package plugin provides Lua-scripted diagram renderers. A script defines a
// global function
//
//	function render(source)
//	    return text        -- success
//	    -- or
//	    return nil, "why"  -- failure
//	end
//
// gopher-lua's LState is not goroutine-safe, so each renderer owns one state
// on a dedicated goroutine and serializes all calls through it.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/livemark/internal/diagram"
)

// Script renderer errors.
var (
	// ErrClosed is returned when using a closed renderer.
	ErrClosed = errors.New("script renderer closed")
	// ErrNoRenderFunction is returned when the script defines no global
	// render function.
	ErrNoRenderFunction = errors.New("script defines no render function")
)

type callResult struct {
	out []byte
	err error
}

type call struct {
	ctx    context.Context
	source string
	result chan callResult
}

// ScriptRenderer implements diagram.Renderer with a Lua script.
type ScriptRenderer struct {
	name   string
	script string

	queue chan *call
	done  chan struct{}
	ready chan struct{}

	loadErr   error
	closed    atomic.Bool
	closeOnce sync.Once
}

var _ diagram.Renderer = (*ScriptRenderer)(nil)

// NewScriptRenderer starts the owning goroutine and loads the script on it.
// Load problems surface through Available and Render, matching the other
// renderers' probe-at-use behavior.
func NewScriptRenderer(name, script string) *ScriptRenderer {
	r := &ScriptRenderer{
		name:   name,
		script: script,
		queue:  make(chan *call, 16),
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
	}
	go r.run()
	return r
}

// NewScriptRendererFile loads the script from a file.
func NewScriptRendererFile(name, path string) (*ScriptRenderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	return NewScriptRenderer(name, string(data)), nil
}

// run owns the LState for the renderer's lifetime.
func (r *ScriptRenderer) run() {
	L := lua.NewState()
	defer L.Close()

	r.loadErr = r.load(L)
	close(r.ready)

	for {
		select {
		case <-r.done:
			r.drain()
			return
		case c := <-r.queue:
			out, err := r.render(L, c)
			c.result <- callResult{out: out, err: err}
		}
	}
}

func (r *ScriptRenderer) load(L *lua.LState) error {
	if err := L.DoString(r.script); err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	if _, ok := L.GetGlobal("render").(*lua.LFunction); !ok {
		return ErrNoRenderFunction
	}
	return nil
}

// render runs one call with panic recovery; a broken script must not take
// down the executor goroutine.
func (r *ScriptRenderer) render(L *lua.LState, c *call) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			switch v := rec.(type) {
			case error:
				err = v
			case string:
				err = errors.New(v)
			default:
				err = errors.New("lua panic")
			}
		}
	}()

	// A previous aborted call may have left values behind.
	L.SetTop(0)

	if c.ctx != nil {
		L.SetContext(c.ctx)
		defer L.RemoveContext()
	}

	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("render"),
		NRet:    2,
		Protect: true,
	}, lua.LString(c.source)); err != nil {
		return nil, fmt.Errorf("render call: %w", err)
	}
	msg := L.Get(-1)
	text := L.Get(-2)
	L.Pop(2)

	if s, ok := text.(lua.LString); ok {
		return []byte(s), nil
	}
	if s, ok := msg.(lua.LString); ok {
		return nil, errors.New(string(s))
	}
	return nil, errors.New("render returned no text")
}

// drain completes queued calls after Close.
func (r *ScriptRenderer) drain() {
	for {
		select {
		case c := <-r.queue:
			c.result <- callResult{err: ErrClosed}
		default:
			return
		}
	}
}

// Name implements diagram.Renderer.
func (r *ScriptRenderer) Name() string { return r.name }

// Available implements diagram.Renderer; it reports script load problems.
func (r *ScriptRenderer) Available() error {
	<-r.ready
	if r.closed.Load() {
		return ErrClosed
	}
	return r.loadErr
}

// Render implements diagram.Renderer. Calls are serialized; cancellation
// both releases the caller and aborts the running script through the
// state's context.
func (r *ScriptRenderer) Render(ctx context.Context, source string) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	<-r.ready
	if r.loadErr != nil {
		return nil, r.loadErr
	}

	c := &call{ctx: ctx, source: source, result: make(chan callResult, 1)}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrClosed
	case r.queue <- c:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrClosed
	case res := <-c.result:
		return res.out, res.err
	}
}

// Close stops the executor goroutine. Queued calls complete with ErrClosed.
func (r *ScriptRenderer) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.done)
	})
}
