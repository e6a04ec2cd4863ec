// Package vellum is a template-driven static page engine.
//
// Given a directory of page templates, a set of named data hooks, and
// optional dynamic route descriptors, vellum produces rendered HTML
// artifacts in batch mode and serves the same pages on demand during
// development. Both modes share one resolution pipeline (template
// discovery, route pattern derivation, page expansion, and the output
// path strategy), so the dev server and the batch build always agree
// on which template serves which path.
//
// Create an Engine, register hooks and routes, then build or serve:
//
//	cfg, _ := config.Load(".")
//	eng, _ := vellum.New(vellum.Options{Config: cfg})
//
//	eng.RegisterHook("posts", func(ctx context.Context, _ hooks.Params) (any, error) {
//	    return loadPosts(ctx)
//	})
//	eng.AddRoute(routes.Descriptor{
//	    Template:   "post",
//	    DataSource: "posts",
//	    Params:     func(item any) map[string]any { return map[string]any{"slug": slugOf(item)} },
//	    Path:       func(item any) string { return "blog/" + slugOf(item) + ".html" },
//	})
//
//	http.ListenAndServe(":8080", eng) // dev mode
package vellum

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/vellum-web/vellum/internal/config"
	"github.com/vellum-web/vellum/pkg/assets"
	"github.com/vellum-web/vellum/pkg/hooks"
	"github.com/vellum-web/vellum/pkg/render"
	"github.com/vellum-web/vellum/pkg/routes"
	"github.com/vellum-web/vellum/pkg/templates"
)

// =============================================================================
// Engine
// =============================================================================

// Options configures an Engine.
type Options struct {
	// Config is the loaded project configuration. Required.
	Config *config.Config

	// Renderer evaluates templates. Defaults to the html/template
	// renderer over the configured templates directory.
	Renderer render.Renderer

	// Resolver backs the "asset" template helper. Defaults to a
	// manifest resolver when the config names a manifest, otherwise a
	// passthrough resolver.
	Resolver assets.Resolver

	// Logger receives engine diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// DevMode marks the engine as serving interactively. It is exposed
	// to templates as the "dev" context key and disables template
	// caching in the default renderer.
	DevMode bool
}

// Engine is the route resolution and page generation engine. It
// implements http.Handler for dev-mode serving; batch generation goes
// through internal/build, which walks the same snapshot.
type Engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *hooks.Registry
	renderer render.Renderer
	resolver assets.Resolver
	devMode  bool

	staticFS http.FileSystem

	mu    sync.RWMutex
	descs []routes.Descriptor
	snap  *snapshot
}

// snapshot is the read-only resolution state computed once per build
// pass or server start: discovered templates, derived route patterns in
// registration order, and the set of template ids claimed by dynamic
// routes. Shared across concurrent request handlers without locking.
type snapshot struct {
	templates *templates.Set
	patterns  []*routes.Pattern
	claimed   map[string]bool
}

// New creates an Engine from options. New performs the first Refresh
// eagerly, so a missing or unreadable templates directory fails here
// rather than on the first request.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("vellum: Options.Config is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = defaultResolver(opts.Config, opts.DevMode, logger)
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.NewHTMLRenderer(opts.Config.TemplatesDir(), resolver.Asset, !opts.DevMode)
	}

	e := &Engine{
		cfg:      opts.Config,
		logger:   logger,
		registry: hooks.NewRegistry(),
		renderer: renderer,
		resolver: resolver,
		devMode:  opts.DevMode,
		staticFS: http.Dir(opts.Config.StaticDir()),
	}

	if err := e.Refresh(); err != nil {
		return nil, err
	}
	return e, nil
}

// defaultResolver picks manifest-backed resolution when a manifest is
// configured and present, passthrough otherwise.
func defaultResolver(cfg *config.Config, devMode bool, logger *slog.Logger) assets.Resolver {
	if cfg.Assets.Manifest == "" {
		return assets.NewPassthroughResolver(cfg.Assets.Prefix)
	}

	manifest, err := assets.LoadManifest(filepath.Join(cfg.Dir(), cfg.Assets.Manifest))
	if err != nil {
		if !devMode {
			logger.Warn("asset manifest not loaded, falling back to passthrough",
				"path", cfg.Assets.Manifest, "error", err)
		}
		return assets.NewPassthroughResolver(cfg.Assets.Prefix)
	}
	return assets.NewResolver(manifest, cfg.Assets.Prefix)
}

// RegisterHook binds a named data hook. The name doubles as the
// template context key the hook's data is injected under, and hooks
// whose name matches a template id are invoked for that template's
// pages.
func (e *Engine) RegisterHook(name string, h hooks.Handler) {
	e.registry.Register(name, h)
}

// AddRoute registers a dynamic route descriptor. Pattern derivation
// happens on the next Refresh; a descriptor whose path function cannot
// be probed keeps working for batch generation but has no serve-time
// pattern.
func (e *Engine) AddRoute(d routes.Descriptor) {
	e.mu.Lock()
	e.descs = append(e.descs, d)
	e.mu.Unlock()

	if err := e.Refresh(); err != nil {
		e.logger.Warn("refresh after route registration failed", "error", err)
	}
}

// Refresh rescans the templates directory and re-derives route
// patterns, atomically swapping in a fresh snapshot. The dev server
// calls this when the watcher reports template changes; batch builds
// run against whatever snapshot is current when the pass starts.
func (e *Engine) Refresh() error {
	set, err := templates.Scan(e.cfg.TemplatesDir())
	if err != nil {
		return fmt.Errorf("vellum: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &snapshot{
		templates: set,
		claimed:   make(map[string]bool, len(e.descs)),
	}

	for _, d := range e.descs {
		snap.claimed[d.Template] = true

		p, err := routes.Derive(d)
		if err != nil {
			// No serve-time pattern; batch expansion is unaffected.
			e.logger.Warn("route pattern derivation failed", "template", d.Template, "error", err)
			continue
		}
		snap.patterns = append(snap.patterns, p)
	}

	e.snap = snap
	return nil
}

// Snapshot returns the current resolution state. The returned value is
// immutable and safe for concurrent use.
func (e *Engine) Snapshot() (*templates.Set, []*routes.Pattern, map[string]bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap.templates, e.snap.patterns, e.snap.claimed
}

// Descriptors returns the registered dynamic routes in registration
// order. Callers must not mutate the returned slice.
func (e *Engine) Descriptors() []routes.Descriptor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.descs
}

// Hooks returns the engine's hook registry.
func (e *Engine) Hooks() *hooks.Registry {
	return e.registry
}

// Renderer returns the engine's renderer.
func (e *Engine) Renderer() render.Renderer {
	return e.renderer
}

// Config returns the engine's project configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// DevMode reports whether the engine serves interactively.
func (e *Engine) DevMode() bool {
	return e.devMode
}
