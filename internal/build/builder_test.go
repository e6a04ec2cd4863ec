package build

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/vellum-web/vellum"
	"github.com/vellum-web/vellum/internal/config"
	"github.com/vellum-web/vellum/internal/diag"
	"github.com/vellum-web/vellum/pkg/hooks"
	"github.com/vellum-web/vellum/pkg/routes"
)

// memSink captures emitted artifacts in memory.
type memSink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemSink() *memSink {
	return &memSink{files: make(map[string][]byte)}
}

func (s *memSink) Put(ctx context.Context, name string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = append([]byte(nil), content...)
	return nil
}

func (s *memSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	return names
}

func newTestEngine(t *testing.T, urls string, files map[string]string) *vellum.Engine {
	t.Helper()

	dir := t.TempDir()
	cfgJSON := `{"name": "site", "urls": "` + urls + `"}`
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(cfgJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(dir, "templates", filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	eng, err := vellum.New(vellum.Options{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	return eng
}

// addBlogRoute wires the standard test route: a "posts" collection
// expanded through the "post" template into blog/<slug>.html pages.
func addBlogRoute(e *vellum.Engine, items []any) {
	e.RegisterHook("posts", func(ctx context.Context, params hooks.Params) (any, error) {
		return items, nil
	})
	e.RegisterHook("post", func(ctx context.Context, params hooks.Params) (any, error) {
		return map[string]any{"slug": params["slug"]}, nil
	})
	e.AddRoute(routes.Descriptor{
		Template:   "post",
		DataSource: "posts",
		Params: func(item any) map[string]any {
			return map[string]any{"slug": item.(map[string]any)["slug"]}
		},
		Path: func(item any) string {
			return "blog/" + item.(map[string]any)["slug"].(string) + ".html"
		},
	})
}

func TestBuildStaticAndDynamic(t *testing.T) {
	e := newTestEngine(t, "flat", map[string]string{
		"index.html": "<h1>home</h1>",
		"about.html": "<h1>about</h1>",
		"post.html":  "<p>{{.params.slug}}</p>",
	})
	addBlogRoute(e, []any{
		map[string]any{"slug": "alpha"},
		map[string]any{"slug": "beta"},
	})

	sink := newMemSink()
	result, err := New(e, Options{Sink: sink, Concurrency: 1}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.StaticPages != 2 {
		t.Errorf("StaticPages = %d, want 2", result.StaticPages)
	}
	if result.DynamicPages != 2 {
		t.Errorf("DynamicPages = %d, want 2", result.DynamicPages)
	}
	if result.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", result.Skipped)
	}

	for _, name := range []string{"index.html", "about.html", "blog/alpha.html", "blog/beta.html"} {
		if _, ok := sink.files[name]; !ok {
			t.Errorf("missing artifact %q (have %v)", name, sink.names())
		}
	}
	if _, ok := sink.files["post.html"]; ok {
		t.Error("claimed template post.html emitted in static phase")
	}
	if got := string(sink.files["blog/alpha.html"]); !strings.Contains(got, "alpha") {
		t.Errorf("blog/alpha.html = %q, want expanded slug", got)
	}
}

func TestBuildDirectoryMode(t *testing.T) {
	e := newTestEngine(t, "directory", map[string]string{
		"index.html": "<h1>home</h1>",
		"about.html": "<p>{{.currentUrl}}</p>",
		"post.html":  "<p>{{.currentUrl}}</p>",
	})
	addBlogRoute(e, []any{map[string]any{"slug": "alpha"}})

	sink := newMemSink()
	if _, err := New(e, Options{Sink: sink, Concurrency: 1}).Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, name := range []string{"index.html", "about/index.html", "blog/alpha/index.html"} {
		if _, ok := sink.files[name]; !ok {
			t.Errorf("missing artifact %q (have %v)", name, sink.names())
		}
	}
	if got := string(sink.files["blog/alpha/index.html"]); !strings.Contains(got, "/blog/alpha/") {
		t.Errorf("blog/alpha/index.html = %q, want canonical URL /blog/alpha/", got)
	}
	if got := string(sink.files["about/index.html"]); !strings.Contains(got, "/about/") {
		t.Errorf("about/index.html = %q, want canonical URL /about/", got)
	}
}

func TestBuildItemFailureIsolation(t *testing.T) {
	e := newTestEngine(t, "flat", map[string]string{
		"post.html": "<p>{{.params.slug}}</p>",
	})
	// The middle item has no slug; its path function panics on the type
	// assertion and only that item is dropped.
	addBlogRoute(e, []any{
		map[string]any{"slug": "alpha"},
		map[string]any{},
		map[string]any{"slug": "gamma"},
	})

	sink := newMemSink()
	result, err := New(e, Options{Sink: sink, Concurrency: 1}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.DynamicPages != 2 {
		t.Errorf("DynamicPages = %d, want 2", result.DynamicPages)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if len(result.Diagnostics) == 0 {
		t.Error("expected a diagnostic for the failed item")
	}
	for _, name := range []string{"blog/alpha.html", "blog/gamma.html"} {
		if _, ok := sink.files[name]; !ok {
			t.Errorf("missing artifact %q", name)
		}
	}
}

func TestBuildCollisionSkipsDuplicate(t *testing.T) {
	e := newTestEngine(t, "flat", map[string]string{
		"post.html": "<p>{{.params.slug}}</p>",
	})
	addBlogRoute(e, []any{
		map[string]any{"slug": "same"},
		map[string]any{"slug": "same"},
	})

	sink := newMemSink()
	result, err := New(e, Options{Sink: sink, Concurrency: 1}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.DynamicPages != 1 {
		t.Errorf("DynamicPages = %d, want 1", result.DynamicPages)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}

	var found bool
	for _, d := range result.Diagnostics {
		if d.Category == diag.CategoryEmit && strings.Contains(d.Detail, "collision") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a collision diagnostic, got %v", result.Diagnostics)
	}
}

func TestBuildExpandsRouteWithoutServePattern(t *testing.T) {
	type post struct{ Slug string }

	e := newTestEngine(t, "flat", map[string]string{
		"post.html": "<p>{{.params.slug}}</p>",
	})
	e.RegisterHook("posts", func(ctx context.Context, params hooks.Params) (any, error) {
		return []post{{Slug: "alpha"}, {Slug: "beta"}}, nil
	})
	e.RegisterHook("post", func(ctx context.Context, params hooks.Params) (any, error) {
		return map[string]any{"slug": params["slug"]}, nil
	})
	// The type assertions panic on the synthetic probe item, so the
	// route gets no serve-time pattern. Expansion over the real typed
	// collection must be unaffected.
	e.AddRoute(routes.Descriptor{
		Template:   "post",
		DataSource: "posts",
		Params: func(item any) map[string]any {
			return map[string]any{"slug": item.(post).Slug}
		},
		Path: func(item any) string {
			return "blog/" + item.(post).Slug + ".html"
		},
	})

	_, patterns, _ := e.Snapshot()
	if len(patterns) != 0 {
		t.Fatalf("got %d serve-time patterns, want 0", len(patterns))
	}

	sink := newMemSink()
	result, err := New(e, Options{Sink: sink, Concurrency: 1}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.DynamicPages != 2 {
		t.Errorf("DynamicPages = %d, want 2", result.DynamicPages)
	}
	if result.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", result.Skipped)
	}
	for _, name := range []string{"blog/alpha.html", "blog/beta.html"} {
		if _, ok := sink.files[name]; !ok {
			t.Errorf("missing artifact %q (have %v)", name, sink.names())
		}
	}
}

func TestBuildMissingHookSkipsRoute(t *testing.T) {
	e := newTestEngine(t, "flat", map[string]string{
		"index.html": "<h1>home</h1>",
		"post.html":  "<p>{{.params.slug}}</p>",
	})
	e.AddRoute(routes.Descriptor{
		Template:   "post",
		DataSource: "posts",
		Path: func(item any) string {
			return "blog/" + item.(map[string]any)["slug"].(string) + ".html"
		},
	})

	sink := newMemSink()
	result, err := New(e, Options{Sink: sink, Concurrency: 1}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if result.DynamicPages != 0 {
		t.Errorf("DynamicPages = %d, want 0", result.DynamicPages)
	}
	if result.StaticPages != 1 {
		t.Errorf("StaticPages = %d, want 1 (index only, post is claimed)", result.StaticPages)
	}
	if len(result.Diagnostics) == 0 {
		t.Error("expected a diagnostic for the missing data source")
	}
}

func TestBuildNonCollectionData(t *testing.T) {
	e := newTestEngine(t, "flat", map[string]string{
		"post.html": "<p>{{.params.slug}}</p>",
	})
	e.RegisterHook("posts", func(ctx context.Context, params hooks.Params) (any, error) {
		return "not a list", nil
	})
	e.AddRoute(routes.Descriptor{
		Template:   "post",
		DataSource: "posts",
		Path:       func(item any) string { return "x.html" },
	})

	sink := newMemSink()
	result, err := New(e, Options{Sink: sink, Concurrency: 1}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if result.Pages() != 0 {
		t.Errorf("Pages() = %d, want 0", result.Pages())
	}
	if len(result.Diagnostics) == 0 {
		t.Error("expected a diagnostic for the non-collection data source")
	}
}

func TestBuildConcurrent(t *testing.T) {
	items := make([]any, 40)
	for i := range items {
		items[i] = map[string]any{"slug": "post-" + string(rune('a'+i%26)) + string(rune('a'+i/26))}
	}

	e := newTestEngine(t, "flat", map[string]string{
		"index.html": "<h1>home</h1>",
		"post.html":  "<p>{{.params.slug}}</p>",
	})
	addBlogRoute(e, items)

	sink := newMemSink()
	result, err := New(e, Options{Sink: sink, Concurrency: 8}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := result.Pages() + result.Skipped; got != 41 {
		t.Errorf("pages + skipped = %d, want 41", got)
	}
}
