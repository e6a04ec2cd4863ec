package vellum

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// =============================================================================
// Static Asset Serving (dev mode)
// =============================================================================

// staticRelPath returns a sanitized path relative to the static
// directory for an asset request. Traversal and absolute-path tricks
// are rejected so serving cannot escape the configured directory.
func (e *Engine) staticRelPath(urlPath string) (string, bool) {
	rel := strings.TrimPrefix(urlPath, internalPrefix)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", false
	}

	// NUL can arrive via %00; backslash is a platform-dependent
	// separator we never accept.
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}

	// Reject dot-segments before cleaning so traversal attempts are not
	// cleaned into something that looks legitimate.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

// serveStatic handles asset requests from the static directory.
func (e *Engine) serveStatic(w http.ResponseWriter, r *http.Request) {
	rel, ok := e.staticRelPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := e.staticFS.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	if e.devMode {
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	} else if isFingerprinted(rel) {
		// Fingerprinted assets are immutable.
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
	}

	http.ServeContent(w, r, rel, info.ModTime(), f)
}

// isFingerprinted reports whether a file name carries a content hash,
// e.g. "site.a1b2c3d4.css".
func isFingerprinted(filePath string) bool {
	parts := strings.Split(path.Base(filePath), ".")
	if len(parts) < 3 {
		return false
	}

	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
