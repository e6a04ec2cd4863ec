package routes

import (
	"fmt"
	"testing"
)

func blogDescriptor() Descriptor {
	return Descriptor{
		Template:   "post",
		DataSource: "posts",
		Params: func(item any) map[string]any {
			return map[string]any{"slug": item.(map[string]any)["slug"]}
		},
		Path: func(item any) string {
			return fmt.Sprintf("blog/%s.html", item.(map[string]any)["slug"])
		},
	}
}

func TestDeriveProbedPattern(t *testing.T) {
	p, err := Derive(blogDescriptor())
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}

	params, ok := p.Match("/blog/42")
	if !ok {
		t.Fatal("Match(/blog/42) = false, want true")
	}
	if params["id"] != "42" || params["slug"] != "42" {
		t.Errorf("params = %v, want id and slug both bound to 42", params)
	}

	if _, ok := p.Match("/blog"); ok {
		t.Error("Match(/blog) = true, want false")
	}
	if _, ok := p.Match("/blog/a/b"); ok {
		t.Error("Match(/blog/a/b) = true, want false")
	}
	if _, ok := p.Match("/other/42"); ok {
		t.Error("Match(/other/42) = true, want false")
	}
}

func TestDeriveProbedPatternAllowsTrailingSlash(t *testing.T) {
	p, err := Derive(blogDescriptor())
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	if _, ok := p.Match("/blog/42/"); !ok {
		t.Error("Match(/blog/42/) = false, want true")
	}
}

func TestDeriveRootLevelRoute(t *testing.T) {
	d := Descriptor{
		Template: "page",
		Path: func(item any) string {
			return fmt.Sprintf("%s.html", item.(map[string]any)["slug"])
		},
	}

	p, err := Derive(d)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}
	params, ok := p.Match("/anything")
	if !ok {
		t.Fatal("Match(/anything) = false, want true")
	}
	if params["slug"] != "anything" {
		t.Errorf("params[slug] = %v, want anything", params["slug"])
	}
}

func TestDerivePathPanicIsAnError(t *testing.T) {
	d := Descriptor{
		Template: "post",
		Path: func(item any) string {
			panic("no real item")
		},
	}

	if _, err := Derive(d); err == nil {
		t.Fatal("Derive() error = nil, want error for panicking path function")
	}
}

func TestDeriveMissingPathFunction(t *testing.T) {
	if _, err := Derive(Descriptor{Template: "post"}); err == nil {
		t.Fatal("Derive() error = nil, want error")
	}
}

func TestDeriveExplicitPattern(t *testing.T) {
	d := Descriptor{
		Template: "archive",
		Pattern:  "archive/:year/:slug",
	}

	p, err := Derive(d)
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}

	params, ok := p.Match("/archive/2024/launch")
	if !ok {
		t.Fatal("Match(/archive/2024/launch) = false, want true")
	}
	if params["year"] != "2024" || params["slug"] != "launch" {
		t.Errorf("params = %v, want year=2024 slug=launch", params)
	}

	if _, ok := p.Match("/archive/2024"); ok {
		t.Error("Match(/archive/2024) = true, want false")
	}
}

func TestDeriveExplicitSinglePlaceholderBindsConventionalKeys(t *testing.T) {
	p, err := Derive(Descriptor{Template: "doc", Pattern: "docs/:name"})
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}

	params, ok := p.Match("/docs/setup")
	if !ok {
		t.Fatal("Match(/docs/setup) = false, want true")
	}
	if params["name"] != "setup" || params["id"] != "setup" || params["slug"] != "setup" {
		t.Errorf("params = %v, want name/id/slug all setup", params)
	}
}

func TestDeriveExplicitPatternRejectsNoPlaceholders(t *testing.T) {
	if _, err := Derive(Descriptor{Template: "post", Pattern: "blog/static"}); err == nil {
		t.Fatal("Derive() error = nil, want error for placeholder-free pattern")
	}
}
