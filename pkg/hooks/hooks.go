// Package hooks implements the data provider registry.
//
// A hook is a named function that supplies context data for page
// rendering. The name under which a hook is registered doubles as the
// variable name injected into the render context, so a hook registered
// as "posts" is addressed in templates as {{ .posts }}. Hooks backing a
// dynamic route's data source are additionally invoked once per page
// with that page's params, which allows a "detail" hook to serve data
// distinct from the full collection.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Params is the parameter bag passed to a hook invocation.
// It is nil for collection-level calls and carries the expanded page
// params (or matched request params) for per-page calls.
type Params map[string]any

// Handler is a data-producing function. Handlers may block on I/O; the
// context carries cancellation from the surrounding build pass or HTTP
// request. Returning (nil, nil) is valid and means "no data".
type Handler func(ctx context.Context, params Params) (any, error)

// Registry is a pure dispatch table from hook name to handler.
// Registration happens during engine setup; after that the registry is
// only read, so Resolve is safe for concurrent use across requests.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a name, replacing any previous binding.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Has reports whether a hook is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered hook names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve invokes the hook registered under name and returns its data
// unchanged. A missing hook is not an error: it returns (nil, nil),
// which is the supported "static page, no data" case. Handler errors
// are wrapped with the hook name for context.
func (r *Registry) Resolve(ctx context.Context, name string, params Params) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	data, err := h(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("hook %q: %w", name, err)
	}
	return data, nil
}

// Unwrap normalizes the two supported hook return shapes for a named
// data source. Hooks may return the collection directly, or wrap it in
// a map keyed by their own name ({"posts": [...]}); both address the
// same data. Any other map shape is returned unchanged.
func Unwrap(name string, data any) any {
	if m, ok := data.(map[string]any); ok {
		if inner, ok := m[name]; ok {
			return inner
		}
	}
	return data
}
