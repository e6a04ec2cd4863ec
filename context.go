package vellum

import (
	"context"

	"github.com/vellum-web/vellum/pkg/hooks"
	"github.com/vellum-web/vellum/pkg/render"
	"github.com/vellum-web/vellum/pkg/templates"
)

// =============================================================================
// Render Context Construction
// =============================================================================

// PageContext resolves a page's data and assembles the render context.
// The hook bound to the template's own id is invoked with the page
// params; its data is injected under that same name (unwrapping the
// optional {name: data} shape). Engine keys: "currentUrl", "dev", and
// "params" carrying the page's parameter bag.
//
// A template with no matching hook renders with just the engine keys,
// the static no-data case.
func (e *Engine) PageContext(ctx context.Context, templateID string, params map[string]any, currentURL string) (render.Context, error) {
	data, err := e.registry.Resolve(ctx, templateID, params)
	if err != nil {
		return nil, err
	}

	rc := render.Context{
		"currentUrl": currentURL,
		"dev":        e.devMode,
		"params":     params,
	}
	if data != nil {
		// Binding is by exact name: the template's id is the hook name
		// is the context key. No wildcard or prefix matching.
		rc[templateID] = hooks.Unwrap(templateID, data)
	}
	return rc, nil
}

// RenderPage resolves data for the template and renders it at
// currentURL. This is the one rendering path both the batch builder and
// the dev matcher go through.
func (e *Engine) RenderPage(ctx context.Context, ref templates.Ref, params map[string]any, currentURL string) (string, error) {
	rc, err := e.PageContext(ctx, ref.ID, params, currentURL)
	if err != nil {
		return "", err
	}
	return e.renderer.Render(ctx, ref.Path, rc)
}
