package routes

import (
	"fmt"
	"regexp"
	"strings"
)

// probeSentinel is the placeholder value substituted for every plausible
// identifying field when probing a descriptor's Path function.
const probeSentinel = "__vellum_probe__"

// probeFields are the item fields the deriver fills with the sentinel.
var probeFields = []string{"id", "slug", "name", "key"}

// Pattern matches inbound request paths for one dynamic route. Patterns
// are derived once per pass or server start and shared read-only across
// concurrent request handlers.
type Pattern struct {
	// Template is the logical id of the template the route renders.
	Template string

	re    *regexp.Regexp
	names []string
}

// Derive produces the matchable pattern for a descriptor.
//
// With an explicit Pattern string it compiles ":name" placeholders into
// named captures. Otherwise it probes: Path is invoked with a synthetic
// item whose identifying fields are all set to a sentinel, the output
// file extension is stripped, and everything left of the final path
// segment is taken as a literal prefix with a single trailing capture.
// The probe heuristic therefore only supports one variable segment, at
// the tail; generators that interpolate mid-path (year/month/slug)
// need the explicit form.
//
// A Path function that panics or errors on sentinel input means the
// route has no serve-time pattern; build-time expansion is unaffected.
func Derive(d Descriptor) (*Pattern, error) {
	if d.Pattern != "" {
		return compileExplicit(d)
	}
	return probe(d)
}

func compileExplicit(d Descriptor) (*Pattern, error) {
	var (
		names []string
		parts []string
	)

	for _, seg := range strings.Split(strings.Trim(d.Pattern, "/"), "/") {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if name == "" {
				return nil, fmt.Errorf("route %s: empty placeholder in pattern %q", d.Template, d.Pattern)
			}
			names = append(names, name)
			parts = append(parts, "([^/]+)")
			continue
		}
		parts = append(parts, regexp.QuoteMeta(seg))
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("route %s: pattern %q has no placeholders", d.Template, d.Pattern)
	}

	re, err := regexp.Compile("^/" + strings.Join(parts, "/") + "/?$")
	if err != nil {
		return nil, fmt.Errorf("route %s: compiling pattern %q: %w", d.Template, d.Pattern, err)
	}

	return &Pattern{Template: d.Template, re: re, names: names}, nil
}

func probe(d Descriptor) (_ *Pattern, err error) {
	if d.Path == nil {
		return nil, fmt.Errorf("route %s: descriptor has no path function", d.Template)
	}

	// The path function is caller code running against synthetic input;
	// a panic here just means the route has no dev-mode pattern.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("route %s: path function panicked on probe: %v", d.Template, r)
		}
	}()

	item := make(map[string]any, len(probeFields))
	for _, f := range probeFields {
		item[f] = probeSentinel
	}

	probed := strings.Trim(d.Path(item), "/")
	probed = strings.TrimSuffix(probed, ".html")
	probed = strings.TrimSuffix(probed, ".htm")
	if probed == "" {
		return nil, fmt.Errorf("route %s: path function produced an empty path on probe", d.Template)
	}

	segments := strings.Split(probed, "/")
	base := segments[:len(segments)-1]

	var sb strings.Builder
	sb.WriteString("^/")
	for _, seg := range base {
		sb.WriteString(regexp.QuoteMeta(seg))
		sb.WriteString("/")
	}
	sb.WriteString("([^/]+)/?$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("route %s: compiling probed pattern: %w", d.Template, err)
	}

	return &Pattern{Template: d.Template, re: re}, nil
}

// Match tests a cleaned request path against the pattern. On a match it
// returns the captured parameters. Probe-derived patterns have one
// anonymous capture, bound to both "id" and "slug" for caller
// convenience; explicit patterns bind each placeholder by name, plus
// the conventional keys when there is a single placeholder.
func (p *Pattern) Match(path string) (map[string]any, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}

	params := make(map[string]any, len(m)+1)
	switch {
	case len(p.names) == 0:
		params["id"] = m[1]
		params["slug"] = m[1]
	case len(p.names) == 1:
		params[p.names[0]] = m[1]
		params["id"] = m[1]
		params["slug"] = m[1]
	default:
		for i, name := range p.names {
			params[name] = m[i+1]
		}
	}
	return params, true
}

// String returns the underlying regular expression, for diagnostics.
func (p *Pattern) String() string {
	return p.re.String()
}
