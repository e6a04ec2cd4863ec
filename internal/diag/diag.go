// Package diag collects non-fatal diagnostics from a generation pass.
//
// The engine's failure policy distinguishes data conditions from bugs:
// configuration problems (missing template, missing hook, non-list data
// source), per-item render failures, and pattern derivation failures
// are all logged, recorded here, and skipped, while anything
// unclassified propagates and aborts the pass.
package diag

import (
	"fmt"
	"log/slog"
	"sync"
)

// Category classifies a diagnostic.
type Category string

const (
	// CategoryConfig covers missing templates, missing hooks, and
	// non-collection data sources.
	CategoryConfig Category = "config"

	// CategoryRender covers per-item params/path extraction and
	// renderer failures.
	CategoryRender Category = "render"

	// CategoryPattern covers serve-time pattern derivation failures.
	CategoryPattern Category = "pattern"

	// CategoryEmit covers artifact emission problems, including output
	// path collisions.
	CategoryEmit Category = "emit"
)

// Diagnostic is one recorded warning.
type Diagnostic struct {
	Category Category
	Route    string
	Detail   string
}

func (d Diagnostic) String() string {
	if d.Route == "" {
		return fmt.Sprintf("[%s] %s", d.Category, d.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Category, d.Route, d.Detail)
}

// Collector accumulates diagnostics for one pass. Safe for concurrent
// use by parallel page workers.
type Collector struct {
	logger *slog.Logger

	mu   sync.Mutex
	list []Diagnostic
}

// NewCollector creates a collector that also logs each diagnostic as a
// warning through logger. A nil logger uses slog.Default.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger}
}

// Warnf records a diagnostic and logs it.
func (c *Collector) Warnf(cat Category, route, format string, args ...any) {
	d := Diagnostic{Category: cat, Route: route, Detail: fmt.Sprintf(format, args...)}

	c.mu.Lock()
	c.list = append(c.list, d)
	c.mu.Unlock()

	c.logger.Warn(d.Detail, "category", string(cat), "route", route)
}

// All returns a copy of the recorded diagnostics.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.list))
	copy(out, c.list)
	return out
}

// Count returns the number of recorded diagnostics.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.list)
}
