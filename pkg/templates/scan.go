// Package templates discovers page templates on disk.
//
// A template's logical id is its path below the templates root without
// the extension: "templates/blog/a.html" has id "blog/a". The id is
// what hooks bind to and what dynamic route descriptors name. The set
// of discovered templates is computed once per build pass or server
// start and treated as immutable afterward.
package templates

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Ref identifies one discovered page template.
type Ref struct {
	// ID is the logical id: the file path relative to the templates
	// root, slash-separated, without the extension.
	ID string

	// Path is the resolvable file path of the template source.
	Path string
}

// Set is an immutable collection of discovered templates, indexed by id.
type Set struct {
	refs []Ref
	byID map[string]Ref
	root string
}

// Scan walks rootDir recursively and collects every *.html template.
// Files and directories whose name starts with "_" are skipped; they
// are partials and layouts consumed by the renderer, not pages.
func Scan(rootDir string) (*Set, error) {
	var refs []Ref

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if strings.HasPrefix(d.Name(), "_") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".html" && ext != ".htm" {
			return nil
		}

		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}

		id := strings.TrimSuffix(filepath.ToSlash(rel), ext)
		refs = append(refs, Ref{ID: id, Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning templates in %s: %w", rootDir, err)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })

	byID := make(map[string]Ref, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
	}

	return &Set{refs: refs, byID: byID, root: rootDir}, nil
}

// Lookup returns the template registered under id.
func (s *Set) Lookup(id string) (Ref, bool) {
	ref, ok := s.byID[id]
	return ref, ok
}

// All returns the discovered templates in id order. Callers must not
// mutate the returned slice.
func (s *Set) All() []Ref {
	return s.refs
}

// Len returns the number of discovered templates.
func (s *Set) Len() int {
	return len(s.refs)
}

// Root returns the directory the set was scanned from.
func (s *Set) Root() string {
	return s.root
}
