package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRenderInjectsContext(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "post.html", `<h1>{{ .post.title }}</h1><p>{{ .currentUrl }}</p>`)

	r := NewHTMLRenderer(dir, nil, false)
	got, err := r.Render(context.Background(), path, Context{
		"post":       map[string]any{"title": "Hello"},
		"currentUrl": "/blog/hello",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `<h1>Hello</h1><p>/blog/hello</p>`
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestRenderAssetFunc(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "index.html", `<script src="{{ asset "app.js" }}"></script>`)

	r := NewHTMLRenderer(dir, func(source string) string {
		return "/assets/" + strings.Replace(source, ".js", ".abc123.js", 1)
	}, false)

	got, err := r.Render(context.Background(), path, Context{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(got, "/assets/app.abc123.js") {
		t.Errorf("Render() = %q, want fingerprinted asset path", got)
	}
}

func TestRenderUsesPartials(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "_nav.html", `{{ define "nav" }}<nav>menu</nav>{{ end }}`)
	path := writeTemplate(t, dir, "index.html", `{{ template "nav" }}<main>body</main>`)

	r := NewHTMLRenderer(dir, nil, false)
	got, err := r.Render(context.Background(), path, Context{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(got, "<nav>menu</nav>") {
		t.Errorf("Render() = %q, want partial output", got)
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	r := NewHTMLRenderer(t.TempDir(), nil, false)
	if _, err := r.Render(context.Background(), "absent.html", Context{}); err == nil {
		t.Fatal("Render() error = nil, want parse error")
	}
}

func TestRenderCanceledContext(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "index.html", `ok`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewHTMLRenderer(dir, nil, false)
	if _, err := r.Render(ctx, path, Context{}); err == nil {
		t.Fatal("Render() error = nil, want context error")
	}
}
