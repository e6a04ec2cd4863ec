package assets

// Resolver turns a source asset name into the URL it is served under.
type Resolver interface {
	Asset(source string) string
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver combines a manifest with a URL prefix. The prefix is
// prepended to every resolved name, so "app.js" with prefix "/assets/"
// becomes "/assets/app.a1b2c3d4.js".
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{manifest: m, prefix: prefix}
}

func (r *manifestResolver) Asset(source string) string {
	return r.prefix + r.manifest.Resolve(source)
}

type passthrough struct {
	prefix string
}

// NewPassthroughResolver returns names unchanged apart from the prefix.
// Dev mode uses it so template output matches production shape even
// without a bundle manifest.
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) Asset(source string) string {
	return p.prefix + source
}
