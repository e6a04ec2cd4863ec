// Package outpath maps logical output names to physical artifacts and
// canonical URLs. Two conventions are supported: flat keeps
// "page.html" as-is and serves it at "/page", directory rewrites it to
// "page/index.html" and serves it at "/page/". Both the batch builder
// and the dev server go through this package so the two modes can never
// disagree about where a page lives.
package outpath

import (
	"errors"
	"path"
	"strings"
)

// Mode selects the flat or directory URL convention.
type Mode int

const (
	// Flat emits "page.html" and serves it at "/page".
	Flat Mode = iota

	// Directory emits "page/index.html" and serves it at "/page/".
	Directory
)

// ErrUnknownMode is returned by ParseMode for unrecognized mode names.
var ErrUnknownMode = errors.New("unknown url mode")

// ParseMode parses the configuration spelling of a mode.
// The empty string defaults to Flat.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "flat":
		return Flat, nil
	case "directory", "dir":
		return Directory, nil
	default:
		return Flat, ErrUnknownMode
	}
}

// String returns the configuration spelling of the mode.
func (m Mode) String() string {
	if m == Directory {
		return "directory"
	}
	return "flat"
}

// ArtifactPath converts a logical output path into the physical file
// name to emit. The conversion is idempotent: a path already ending in
// "index.html" is left unchanged, so repeated application is safe.
func ArtifactPath(logical string, mode Mode) string {
	logical = strings.TrimPrefix(strings.TrimSpace(logical), "/")

	// Root always maps to the top-level index document.
	if logical == "" {
		return "index.html"
	}

	if mode == Flat {
		return logical
	}

	if path.Base(logical) == "index.html" {
		return logical
	}

	switch ext := path.Ext(logical); ext {
	case "":
		return path.Join(logical, "index.html")
	case ".html", ".htm":
		return path.Join(strings.TrimSuffix(logical, ext), "index.html")
	default:
		// Non-page artifacts (feeds, manifests) keep their name.
		return logical
	}
}

// CanonicalURL converts a physical artifact path into the URL it is
// served under. The root document canonicalizes to "/" in both modes.
// Directory mode URLs carry a trailing slash; flat mode URLs drop the
// page extension (".html" or ".htm").
func CanonicalURL(physical string, mode Mode) string {
	physical = strings.TrimPrefix(strings.TrimSpace(physical), "/")

	if physical == "" || physical == "index.html" {
		return "/"
	}

	if mode == Directory {
		dir := strings.TrimSuffix(physical, "index.html")
		dir = strings.TrimSuffix(dir, "/")
		if dir == "" {
			return "/"
		}
		return "/" + dir + "/"
	}

	switch ext := path.Ext(physical); ext {
	case ".html", ".htm":
		physical = strings.TrimSuffix(physical, ext)
	}
	return "/" + physical
}
