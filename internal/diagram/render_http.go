package diagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTPRenderer posts diagram source to a Kroki-style rendering service:
// POST {base}/{diagram}/{format} with the source as the request body.
type HTTPRenderer struct {
	// BaseURL is the service root, e.g. "https://kroki.io".
	BaseURL string
	// Diagram is the diagram type path segment. Defaults to "mermaid".
	Diagram string
	// Format is the output format path segment. Defaults to "svg".
	Format string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Name implements Renderer.
func (r *HTTPRenderer) Name() string { return r.BaseURL }

// Available implements Renderer by validating the base URL. Reachability is
// a per-render concern, not a load-time one.
func (r *HTTPRenderer) Available() error {
	u, err := url.Parse(r.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}

// Render implements Renderer.
func (r *HTTPRenderer) Render(ctx context.Context, source string) ([]byte, error) {
	diagram := r.Diagram
	if diagram == "" {
		diagram = "mermaid"
	}
	format := r.Format
	if format == "" {
		format = "svg"
	}
	endpoint := strings.TrimRight(r.BaseURL, "/") + "/" + diagram + "/" + format

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("renderer returned %d: %s", resp.StatusCode, firstLine(strings.TrimSpace(string(body))))
	}
	return body, nil
}
