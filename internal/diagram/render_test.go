package diagram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
)

func TestCommandRendererEchoesStdin(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not on PATH")
	}

	r := &CommandRenderer{Command: "cat"}
	if err := r.Available(); err != nil {
		t.Fatalf("Available() error = %v", err)
	}

	out, err := r.Render(context.Background(), "graph TD\nA-->B")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if string(out) != "graph TD\nA-->B" {
		t.Errorf("Render() = %q", out)
	}
}

func TestCommandRendererMissingBinary(t *testing.T) {
	r := &CommandRenderer{Command: "no-such-renderer-binary"}
	if err := r.Available(); err == nil {
		t.Error("Available() error = nil, want lookup failure")
	}
}

func TestCommandRendererFailureUsesStderr(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not on PATH")
	}

	r := &CommandRenderer{Command: "sh", Args: []string{"-c", "echo 'bad diagram' >&2; exit 3"}}
	_, err := r.Render(context.Background(), "x")
	if err == nil {
		t.Fatal("Render() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "bad diagram") {
		t.Errorf("error = %v, want stderr text", err)
	}
}

func TestHTTPRendererSuccess(t *testing.T) {
	var gotBody string
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		gotPath = req.URL.Path
		w.Write([]byte("<svg/>"))
	}))
	defer srv.Close()
	t.Cleanup(srv.Client().CloseIdleConnections)

	r := &HTTPRenderer{BaseURL: srv.URL, Client: srv.Client()}
	if err := r.Available(); err != nil {
		t.Fatalf("Available() error = %v", err)
	}

	out, err := r.Render(context.Background(), "graph TD")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if string(out) != "<svg/>" {
		t.Errorf("Render() = %q", out)
	}
	if gotBody != "graph TD" {
		t.Errorf("request body = %q", gotBody)
	}
	if gotPath != "/mermaid/svg" {
		t.Errorf("request path = %q, want /mermaid/svg", gotPath)
	}
}

func TestHTTPRendererErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "syntax error in diagram", http.StatusBadRequest)
	}))
	defer srv.Close()
	t.Cleanup(srv.Client().CloseIdleConnections)

	r := &HTTPRenderer{BaseURL: srv.URL, Diagram: "plantuml", Format: "txt", Client: srv.Client()}
	_, err := r.Render(context.Background(), "bad")
	if err == nil {
		t.Fatal("Render() error = nil, want failure")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "syntax error") {
		t.Errorf("error = %v, want status and body text", err)
	}
}

func TestHTTPRendererAvailable(t *testing.T) {
	bad := &HTTPRenderer{BaseURL: "ftp://example.com"}
	if err := bad.Available(); err == nil {
		t.Error("Available() error = nil for ftp scheme, want failure")
	}

	good := &HTTPRenderer{BaseURL: "https://kroki.example"}
	if err := good.Available(); err != nil {
		t.Errorf("Available() error = %v, want nil", err)
	}
}
