// Package build implements the batch generation orchestrator.
//
// A pass has two phases. The static phase renders every discovered
// template not claimed by a dynamic route, resolving data through the
// hook named after the template's own id. The dynamic phase expands
// each route descriptor over its data source and renders the resulting
// page jobs, resolving per-item data with each job's params. A template
// id participates in at most one phase per pass, so nothing is emitted
// twice.
//
// The failure policy is deliberate: configuration problems and
// per-item render failures are warned about and skipped, keeping the
// pass alive; emission failures and unclassified errors abort the pass
// because they indicate a broken environment or a bug, not a data
// condition.
package build

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tdewolff/minify/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vellum-web/vellum"
	"github.com/vellum-web/vellum/internal/diag"
	"github.com/vellum-web/vellum/pkg/hooks"
	"github.com/vellum-web/vellum/pkg/outpath"
	"github.com/vellum-web/vellum/pkg/routes"
	"github.com/vellum-web/vellum/pkg/templates"
)

const tracerName = "vellum/build"

// Options configures a Builder.
type Options struct {
	// Minify post-processes rendered HTML. Defaults to the project
	// config setting.
	Minify bool

	// Concurrency bounds the parallel fan-out over pages. Zero takes
	// the config value; one renders sequentially.
	Concurrency int

	// Sink receives the generated artifacts. Defaults to a DirSink
	// rooted at the configured output directory.
	Sink Sink

	// OnProgress is called after each emitted or skipped page with the
	// number of pages handled so far and the total.
	OnProgress func(done, total int)
}

// Result summarizes one generation pass.
type Result struct {
	// Duration is the wall time of the pass.
	Duration time.Duration

	// StaticPages and DynamicPages count emitted artifacts per phase.
	StaticPages  int
	DynamicPages int

	// Skipped counts pages dropped by the non-fatal failure policy.
	Skipped int

	// Diagnostics are the warnings recorded during the pass.
	Diagnostics []diag.Diagnostic
}

// Pages returns the total number of emitted artifacts.
func (r *Result) Pages() int {
	return r.StaticPages + r.DynamicPages
}

// Builder runs generation passes for one engine.
type Builder struct {
	engine   *vellum.Engine
	options  Options
	minifier *minify.M
}

// New creates a builder, filling option defaults from the engine's
// project configuration.
func New(engine *vellum.Engine, options Options) *Builder {
	cfg := engine.Config()
	if options.Sink == nil {
		options.Sink = NewDirSink(cfg.OutputDir())
	}
	if options.Concurrency == 0 {
		options.Concurrency = cfg.Build.Concurrency
	}
	if !options.Minify && cfg.Build.Minify {
		options.Minify = true
	}

	b := &Builder{engine: engine, options: options}
	if options.Minify {
		b.minifier = newMinifier()
	}
	return b
}

// pageUnit is one render-and-emit unit, from either phase.
type pageUnit struct {
	ref     templates.Ref
	params  map[string]any
	logical string
	phase   string
	route   string
}

// passState is the shared mutable state of one pass: the emitted-path
// set for collision detection and the progress/result counters. All
// fields are safe for concurrent page workers.
type passState struct {
	col   *diag.Collector
	total int
	done  atomic.Int64

	mu      sync.Mutex
	emitted map[string]bool

	static  atomic.Int64
	dynamic atomic.Int64
	skipped atomic.Int64
}

// claim records a physical output path, reporting whether it was free.
// A collision means two pages resolved to the same artifact; the later
// one is skipped loudly instead of silently overwriting the first.
func (s *passState) claim(physical string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emitted[physical] {
		return false
	}
	s.emitted[physical] = true
	return true
}

// Build runs one complete generation pass.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	tracer := otel.Tracer(tracerName)

	ctx, span := tracer.Start(ctx, "build.pass")
	defer span.End()

	col := diag.NewCollector(b.engine.Logger())
	set, _, claimed := b.engine.Snapshot()

	state := &passState{col: col, emitted: make(map[string]bool)}

	staticUnits := b.collectStatic(set, claimed)
	dynamicUnits := b.collectDynamic(ctx, set, state)
	state.total = len(staticUnits) + len(dynamicUnits)

	if err := b.renderPhase(ctx, tracer, "build.static_phase", staticUnits, state); err != nil {
		return nil, err
	}
	if err := b.renderPhase(ctx, tracer, "build.dynamic_phase", dynamicUnits, state); err != nil {
		return nil, err
	}

	result := &Result{
		Duration:     time.Since(start),
		StaticPages:  int(state.static.Load()),
		DynamicPages: int(state.dynamic.Load()),
		Skipped:      int(state.skipped.Load()),
		Diagnostics:  col.All(),
	}

	span.SetAttributes(
		attribute.Int("pages.static", result.StaticPages),
		attribute.Int("pages.dynamic", result.DynamicPages),
		attribute.Int("pages.skipped", result.Skipped),
	)
	buildDuration.Observe(result.Duration.Seconds())

	return result, nil
}

// collectStatic enumerates the static-phase units: every discovered
// template whose id is not claimed by a dynamic route. Claimed
// templates render only through expansion, which both prevents double
// emission and prevents rendering a detail template with no params.
func (b *Builder) collectStatic(set *templates.Set, claimed map[string]bool) []pageUnit {
	var units []pageUnit
	for _, ref := range set.All() {
		if claimed[ref.ID] {
			continue
		}
		units = append(units, pageUnit{
			ref:     ref,
			logical: ref.ID + ".html",
			phase:   "static",
			route:   ref.ID,
		})
	}
	return units
}

// collectDynamic resolves each route's data source once (with empty
// params, expecting the full collection) and expands it into page
// units. Every failure here is a configuration condition: warn, skip
// the route, keep the pass alive.
func (b *Builder) collectDynamic(ctx context.Context, set *templates.Set, state *passState) []pageUnit {
	var units []pageUnit
	col := state.col

	for _, d := range b.engine.Descriptors() {
		ref, ok := set.Lookup(d.Template)
		if !ok {
			col.Warnf(diag.CategoryConfig, d.Template, "route template not found, skipping route")
			pagesSkipped.WithLabelValues(string(diag.CategoryConfig)).Inc()
			continue
		}

		if !b.engine.Hooks().Has(d.DataSource) {
			col.Warnf(diag.CategoryConfig, d.Template, "data source hook %q not registered, skipping route", d.DataSource)
			pagesSkipped.WithLabelValues(string(diag.CategoryConfig)).Inc()
			continue
		}

		data, err := b.engine.Hooks().Resolve(ctx, d.DataSource, nil)
		if err != nil {
			col.Warnf(diag.CategoryConfig, d.Template, "resolving data source: %v", err)
			pagesSkipped.WithLabelValues(string(diag.CategoryConfig)).Inc()
			continue
		}

		jobs, itemErrs, err := routes.Expand(d, hooks.Unwrap(d.DataSource, data))
		if err != nil {
			if errors.Is(err, routes.ErrNotCollection) {
				col.Warnf(diag.CategoryConfig, d.Template, "%v", err)
				pagesSkipped.WithLabelValues(string(diag.CategoryConfig)).Inc()
				continue
			}
			col.Warnf(diag.CategoryConfig, d.Template, "expanding route: %v", err)
			continue
		}

		for _, ie := range itemErrs {
			col.Warnf(diag.CategoryRender, d.Template, "%v", ie)
			pagesSkipped.WithLabelValues(string(diag.CategoryRender)).Inc()
			state.skipped.Add(1)
		}

		for _, job := range jobs {
			units = append(units, pageUnit{
				ref:     ref,
				params:  job.Params,
				logical: job.OutputPath,
				phase:   "dynamic",
				route:   d.Template,
			})
		}
	}

	return units
}

// renderPhase renders one phase's units, fanning out over a bounded
// worker pool. The first fatal error cancels the remaining work; page
// failures covered by the non-fatal policy never surface here.
func (b *Builder) renderPhase(ctx context.Context, tracer trace.Tracer, name string, units []pageUnit, state *passState) error {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.Int("pages.total", len(units))))
	defer span.End()

	workers := b.options.Concurrency
	if workers <= 1 {
		for _, unit := range units {
			if err := b.renderOne(ctx, unit, state); err != nil {
				return err
			}
		}
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, workers)
		errOnce  sync.Once
		fatalErr error
	)

	for _, unit := range units {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(unit pageUnit) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := b.renderOne(ctx, unit, state); err != nil {
				errOnce.Do(func() {
					fatalErr = err
					cancel()
				})
			}
		}(unit)
	}

	wg.Wait()
	return fatalErr
}

// renderOne renders and emits a single page. Render failures follow the
// non-fatal policy (warn, count, skip); emission failures and context
// cancellation are fatal to the pass.
func (b *Builder) renderOne(ctx context.Context, unit pageUnit, state *passState) error {
	mode := b.engine.Config().Mode()
	physical := outpath.ArtifactPath(unit.logical, mode)
	url := outpath.CanonicalURL(physical, mode)

	defer b.reportProgress(state)

	if !state.claim(physical) {
		state.col.Warnf(diag.CategoryEmit, unit.route,
			"output path collision on %q, skipping duplicate emission", physical)
		pagesSkipped.WithLabelValues(string(diag.CategoryEmit)).Inc()
		state.skipped.Add(1)
		return nil
	}

	content, err := b.engine.RenderPage(ctx, unit.ref, unit.params, url)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		state.col.Warnf(diag.CategoryRender, unit.route, "rendering %s: %v", unit.logical, err)
		pagesSkipped.WithLabelValues(string(diag.CategoryRender)).Inc()
		state.skipped.Add(1)
		return nil
	}

	if b.minifier != nil {
		if minified, err := b.minifier.String("text/html", content); err == nil {
			content = minified
		} else {
			// Minification must never change the artifact set; fall
			// back to the unminified bytes.
			state.col.Warnf(diag.CategoryEmit, unit.route, "minifying %s: %v", physical, err)
		}
	}

	if err := b.options.Sink.Put(ctx, physical, []byte(content)); err != nil {
		return fmt.Errorf("emitting %s: %w", physical, err)
	}

	switch unit.phase {
	case "static":
		state.static.Add(1)
	default:
		state.dynamic.Add(1)
	}
	pagesGenerated.WithLabelValues(unit.phase).Inc()
	return nil
}

func (b *Builder) reportProgress(state *passState) {
	done := int(state.done.Add(1))
	if b.options.OnProgress != nil {
		b.options.OnProgress(done, state.total)
	}
}
