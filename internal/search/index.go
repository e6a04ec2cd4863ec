// Package search builds a client-side search index from the artifacts
// of a completed generation pass. It runs strictly after the builder
// finishes (the engine guarantees the artifacts exist on disk, nothing
// more) and writes a single JSON document the site's search UI can
// fetch.
package search

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/vellum-web/vellum/pkg/outpath"
)

// Entry is one indexed page.
type Entry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// maxTextLen caps the stored body text per page.
const maxTextLen = 2000

var (
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	tagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
	headRe  = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// BuildIndex walks outputDir for HTML artifacts and writes the index to
// outputName inside it. The index file itself is excluded from
// indexing, as is anything that is not an HTML document.
func BuildIndex(outputDir, outputName string, mode outpath.Mode) (int, error) {
	var entries []Entry

	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return err
		}

		entries = append(entries, extract(filepath.ToSlash(rel), raw, mode))
		return nil
	})
	if err != nil {
		return 0, err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return 0, err
	}

	dest := filepath.Join(outputDir, outputName)
	if err := atomic.WriteFile(dest, bytes.NewReader(data)); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// extract pulls the title and visible text out of one artifact.
func extract(rel string, raw []byte, mode outpath.Mode) Entry {
	doc := string(raw)

	title := ""
	if m := titleRe.FindStringSubmatch(doc); m != nil {
		title = strings.TrimSpace(m[1])
	}

	text := headRe.ReplaceAllString(doc, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	return Entry{
		URL:   outpath.CanonicalURL(rel, mode),
		Title: title,
		Text:  text,
	}
}
