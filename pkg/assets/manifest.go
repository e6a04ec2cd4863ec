// Package assets resolves fingerprinted asset paths for templates.
//
// A bundler producing the project's static assets writes a
// manifest.json mapping source names to hashed file names:
//
//	{
//	  "app.js": "app.a1b2c3d4.js",
//	  "site.css": "site.e5f6a7b8.css"
//	}
//
// The engine loads that manifest and exposes resolution to templates
// through the "asset" function. In dev mode, where no bundle exists,
// a passthrough resolver keeps template output consistent.
package assets

import (
	"encoding/json"
	"os"
)

// Manifest maps source asset names to their fingerprinted file names.
// It is loaded once per pass and read-only afterward.
type Manifest struct {
	entries map[string]string
}

// LoadManifest reads a manifest.json file. A missing or unreadable
// manifest is an error; dev mode callers typically fall back to
// NewPassthroughResolver instead.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return &Manifest{entries: entries}, nil
}

// Resolve returns the fingerprinted name for source, or source itself
// when the manifest has no entry for it.
func (m *Manifest) Resolve(source string) string {
	if m == nil {
		return source
	}
	if hashed, ok := m.entries[source]; ok {
		return hashed
	}
	return source
}

// Len returns the number of manifest entries.
func (m *Manifest) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}
