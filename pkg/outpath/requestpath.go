package outpath

import (
	"path"
	"strings"
)

// CleanRequestPath normalizes an inbound request path for matching.
// Multiple slashes collapse, dot segments resolve, and the trailing
// slash is dropped (except for root). Paths that try to escape root or
// smuggle separators come back as just "/".
func CleanRequestPath(p string) string {
	if p == "" {
		return "/"
	}

	// Strip any query string the caller left attached.
	p, _, _ = strings.Cut(p, "?")

	if strings.Contains(p, "\\") || strings.Contains(p, "\x00") {
		return "/"
	}

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	cleaned := path.Clean(p)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "/"
	}
	return cleaned
}

// HasExtension reports whether the final segment of the request path
// carries a file extension. The dev matcher uses this to delegate
// asset-looking paths to static file serving instead of template
// resolution.
func HasExtension(p string) bool {
	return path.Ext(path.Base(p)) != ""
}

// TemplateID converts a cleaned request path into the logical template
// id it addresses: "/about" becomes "about", "/" becomes "index", and
// nested paths keep their directory prefix ("/docs/setup" becomes
// "docs/setup").
func TemplateID(p string) string {
	p = strings.Trim(CleanRequestPath(p), "/")
	if p == "" {
		return "index"
	}
	return p
}
