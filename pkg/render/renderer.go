// Package render defines the template rendering boundary.
//
// The engine prepares a render context (provider data plus
// engine-supplied keys) and hands it, together with a template file
// path, to a Renderer. Template evaluation itself lives behind that
// interface; the default implementation drives html/template, but the
// engine never depends on anything beyond Render.
package render

import (
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"sync"
)

// Context is the key/value mapping a template is evaluated against.
// It carries all resolved provider data (each collection under its
// hook's own name), the expanded page params under "params", and the
// engine keys "currentUrl" and "dev".
type Context map[string]any

// Renderer evaluates one template file against a context and returns
// the produced HTML.
type Renderer interface {
	Render(ctx context.Context, templatePath string, data Context) (string, error)
}

// AssetFunc resolves a source asset name to its served URL. It is
// installed as the "asset" template function.
type AssetFunc func(source string) string

// HTMLRenderer renders page templates with html/template. Partials
// (underscore-prefixed files in the templates root) are parsed
// alongside every page so templates can invoke them by name.
type HTMLRenderer struct {
	partialsGlob string
	asset        AssetFunc
	cacheParsed  bool

	mu    sync.Mutex
	cache map[string]*template.Template
}

// NewHTMLRenderer creates a renderer for the given templates root.
// cacheParsed keeps parsed templates across renders; batch builds turn
// it on, dev mode leaves it off so edits show up without a restart.
func NewHTMLRenderer(templatesDir string, asset AssetFunc, cacheParsed bool) *HTMLRenderer {
	if asset == nil {
		asset = func(source string) string { return source }
	}
	return &HTMLRenderer{
		partialsGlob: filepath.Join(templatesDir, "_*.html"),
		asset:        asset,
		cacheParsed:  cacheParsed,
		cache:        make(map[string]*template.Template),
	}
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(ctx context.Context, templatePath string, data Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmpl, err := r.load(templatePath)
	if err != nil {
		return "", fmt.Errorf("parsing template %s: %w", templatePath, err)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, map[string]any(data)); err != nil {
		return "", fmt.Errorf("rendering template %s: %w", templatePath, err)
	}
	return sb.String(), nil
}

func (r *HTMLRenderer) load(templatePath string) (*template.Template, error) {
	if r.cacheParsed {
		r.mu.Lock()
		tmpl, ok := r.cache[templatePath]
		r.mu.Unlock()
		if ok {
			return tmpl, nil
		}
	}

	tmpl := template.New(filepath.Base(templatePath)).Funcs(template.FuncMap{
		"asset": r.asset,
	})

	// Partials are optional; a project without underscore files parses
	// just the page template.
	if matches, _ := filepath.Glob(r.partialsGlob); len(matches) > 0 {
		var err error
		tmpl, err = tmpl.ParseGlob(r.partialsGlob)
		if err != nil {
			return nil, err
		}
	}

	tmpl, err := tmpl.ParseFiles(templatePath)
	if err != nil {
		return nil, err
	}

	if r.cacheParsed {
		r.mu.Lock()
		r.cache[templatePath] = tmpl
		r.mu.Unlock()
	}
	return tmpl, nil
}
