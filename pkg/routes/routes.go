// Package routes implements dynamic routes: declarative mappings from a
// data collection to many concrete pages sharing one template.
//
// A route descriptor names a template and a data source hook and
// carries two caller-supplied functions that turn one collection item
// into page params and a logical output path. At build time the
// descriptor expands into page jobs; at serve time it yields a matchable
// URL pattern so the dev server resolves exactly the same pages the
// build emits. Both sides run through this package, which is what keeps
// them from drifting apart.
package routes

import (
	"errors"
	"fmt"
)

// Descriptor declares one dynamic route. Params and Path are treated as
// pure functions over a collection item; the engine never relies on
// them having side effects.
type Descriptor struct {
	// Template is the logical id of the template every expanded page
	// renders through. It must name a discovered template; a dangling
	// id skips the route with a diagnostic rather than failing a pass.
	Template string

	// DataSource names the hook that produces the full collection.
	DataSource string

	// Params extracts the parameter bag for one collection item.
	Params func(item any) map[string]any

	// Path produces the logical output path for one collection item,
	// e.g. "blog/" + item slug + ".html".
	Path func(item any) string

	// Pattern optionally declares the matchable URL shape explicitly,
	// using ":name" placeholders ("blog/:slug", "archive/:year/:slug").
	// When set it replaces probe-based derivation and supports variable
	// segments anywhere in the path, not only at the tail.
	Pattern string
}

// PageJob is one concrete page produced by expanding a route over one
// collection item. Jobs live for a single generation pass.
type PageJob struct {
	Template   string
	Params     map[string]any
	OutputPath string
}

// ItemError records a failure expanding one collection item. The
// surrounding pass logs it and keeps going; one bad item never aborts
// the rest of the batch.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// ErrNotCollection is returned by Expand when the resolved data source
// is not a list. The route is skipped with a diagnostic.
var ErrNotCollection = errors.New("data source did not resolve to a collection")
