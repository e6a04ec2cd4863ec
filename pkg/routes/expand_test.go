package routes

import (
	"errors"
	"fmt"
	"testing"
)

func TestExpandYieldsOneJobPerItem(t *testing.T) {
	d := blogDescriptor()
	data := []any{
		map[string]any{"slug": "a"},
		map[string]any{"slug": "b"},
	}

	jobs, itemErrs, err := Expand(d, data)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(itemErrs) != 0 {
		t.Fatalf("Expand() item errors = %v, want none", itemErrs)
	}
	if len(jobs) != 2 {
		t.Fatalf("Expand() produced %d jobs, want 2", len(jobs))
	}

	wantPaths := []string{"blog/a.html", "blog/b.html"}
	for i, job := range jobs {
		if job.Template != "post" {
			t.Errorf("jobs[%d].Template = %q, want post", i, job.Template)
		}
		if job.OutputPath != wantPaths[i] {
			t.Errorf("jobs[%d].OutputPath = %q, want %q", i, job.OutputPath, wantPaths[i])
		}
	}
	if jobs[0].Params["slug"] != "a" || jobs[1].Params["slug"] != "b" {
		t.Errorf("job params = %v, %v", jobs[0].Params, jobs[1].Params)
	}
}

func TestExpandTypedSlice(t *testing.T) {
	type post struct{ Slug string }
	d := Descriptor{
		Template: "post",
		Params: func(item any) map[string]any {
			return map[string]any{"slug": item.(post).Slug}
		},
		Path: func(item any) string {
			return "blog/" + item.(post).Slug + ".html"
		},
	}

	jobs, itemErrs, err := Expand(d, []post{{Slug: "a"}, {Slug: "b"}})
	if err != nil || len(itemErrs) != 0 {
		t.Fatalf("Expand() error = %v, item errors = %v", err, itemErrs)
	}
	if len(jobs) != 2 || jobs[1].OutputPath != "blog/b.html" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestExpandNonCollection(t *testing.T) {
	for _, data := range []any{nil, "posts", 42, map[string]any{"k": "v"}, []byte("raw")} {
		_, _, err := Expand(blogDescriptor(), data)
		if !errors.Is(err, ErrNotCollection) {
			t.Errorf("Expand(%T) error = %v, want ErrNotCollection", data, err)
		}
	}
}

func TestExpandIsolatesPerItemFailures(t *testing.T) {
	d := Descriptor{
		Template: "post",
		Params: func(item any) map[string]any {
			m := item.(map[string]any)
			if m["slug"] == "bad" {
				panic("malformed item")
			}
			return map[string]any{"slug": m["slug"]}
		},
		Path: func(item any) string {
			return fmt.Sprintf("blog/%s.html", item.(map[string]any)["slug"])
		},
	}
	data := []any{
		map[string]any{"slug": "a"},
		map[string]any{"slug": "bad"},
		map[string]any{"slug": "c"},
	}

	jobs, itemErrs, err := Expand(d, data)
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("Expand() produced %d jobs, want 2", len(jobs))
	}
	if len(itemErrs) != 1 || itemErrs[0].Index != 1 {
		t.Fatalf("Expand() item errors = %v, want one at index 1", itemErrs)
	}
}

func TestExpandRejectsEmptyOutputPath(t *testing.T) {
	d := Descriptor{
		Template: "post",
		Path:     func(item any) string { return "" },
	}

	jobs, itemErrs, err := Expand(d, []any{map[string]any{}})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(jobs) != 0 || len(itemErrs) != 1 {
		t.Fatalf("jobs = %v, item errors = %v, want 0 jobs and 1 item error", jobs, itemErrs)
	}
}
