package diagram

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRenderer runs an external renderer binary, feeding it source on
// stdin and reading rendered output from stdout. This is the mermaid-cli
// shape: `mmdc -i - -o -` style invocations work unchanged.
type CommandRenderer struct {
	// Command is the binary name or path.
	Command string
	// Args are passed verbatim.
	Args []string
}

// Name implements Renderer.
func (r *CommandRenderer) Name() string { return r.Command }

// Available implements Renderer by resolving the binary on PATH.
func (r *CommandRenderer) Available() error {
	if r.Command == "" {
		return fmt.Errorf("no renderer command configured")
	}
	if _, err := exec.LookPath(r.Command); err != nil {
		return fmt.Errorf("lookup %q: %w", r.Command, err)
	}
	return nil
}

// Render implements Renderer.
func (r *CommandRenderer) Render(ctx context.Context, source string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Stdin = strings.NewReader(source)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s: %s", r.Command, firstLine(msg))
	}
	return stdout.Bytes(), nil
}

// firstLine keeps renderer error messages inline-sized.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
