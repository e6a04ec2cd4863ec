package vellum

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vellum-web/vellum/pkg/outpath"
	"github.com/vellum-web/vellum/pkg/templates"
)

// internalPrefix is the engine's reserved URL namespace in dev mode.
// The dev server mounts the reload channel and metrics under it.
const internalPrefix = "/_vellum/"

// =============================================================================
// Request Matching (dev mode)
// =============================================================================

// ServeHTTP resolves an inbound request to a template and renders it,
// reproducing the resolution order used at generation time:
//
//  1. asset-looking paths (file extension) and the engine's internal
//     namespace are served as static content, not templates
//  2. dynamic route patterns, in registration order; first match wins
//  3. direct template lookup, retrying with an implicit "/index"
//     suffix; templates claimed by a dynamic route are not directly
//     addressable
//  4. the configured not-found template, else a plain 404
//
// Step 2 preceding step 3 means a dynamic route shadows a static
// template with the same path shape.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	path := outpath.CleanRequestPath(r.URL.Path)

	if strings.HasPrefix(r.URL.Path, internalPrefix) || outpath.HasExtension(path) {
		e.serveStatic(w, r)
		return
	}

	set, patterns, claimed := e.Snapshot()

	// Dynamic routes take precedence over same-shaped static templates.
	for _, p := range patterns {
		params, ok := p.Match(path)
		if !ok {
			continue
		}

		ref, ok := set.Lookup(p.Template)
		if !ok {
			e.logger.Warn("matched route names a missing template", "template", p.Template, "path", path)
			continue
		}

		// Query parameters merge under the captured values.
		for key, values := range r.URL.Query() {
			if _, taken := params[key]; !taken && len(values) > 0 {
				params[key] = values[0]
			}
		}

		e.respondPage(w, r, ref, params, http.StatusOK)
		return
	}

	// Direct template lookup with clean-URL index fallback.
	id := outpath.TemplateID(path)
	ref, ok := set.Lookup(id)
	if !ok {
		ref, ok = set.Lookup(id + "/index")
	}

	// A detail template claimed by a dynamic route has no concrete item
	// when addressed directly; treat as not found rather than rendering
	// with undefined data.
	if ok && !claimed[ref.ID] {
		e.respondPage(w, r, ref, nil, http.StatusOK)
		return
	}

	e.respondNotFound(w, r, set)
}

// respondPage renders a resolved template and writes the response. A
// render failure in dev mode surfaces as a 500 with the error text;
// it never panics through to the client.
func (e *Engine) respondPage(w http.ResponseWriter, r *http.Request, ref templates.Ref, params map[string]any, status int) {
	currentURL := outpath.CanonicalURL(
		outpath.ArtifactPath(strings.TrimPrefix(outpath.CleanRequestPath(r.URL.Path), "/"), e.cfg.Mode()),
		e.cfg.Mode(),
	)

	content, err := e.RenderPage(r.Context(), ref, params, currentURL)
	if err != nil {
		// Client went away mid-render; nothing useful to write.
		if r.Context().Err() != nil {
			return
		}
		e.logger.Error("render failed", "template", ref.ID, "path", r.URL.Path, "error", err)
		http.Error(w, fmt.Sprintf("render failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(content))
}

// respondNotFound renders the configured not-found template with a 404
// status, or falls back to a minimal plain response.
func (e *Engine) respondNotFound(w http.ResponseWriter, r *http.Request, set *templates.Set) {
	if e.cfg.NotFound != "" {
		if ref, ok := set.Lookup(e.cfg.NotFound); ok {
			e.respondPage(w, r, ref, nil, http.StatusNotFound)
			return
		}
	}
	http.NotFound(w, r)
}
