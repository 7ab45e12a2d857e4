package note

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParse_YAMLFrontmatter(t *testing.T) {
	raw := []byte(`---
title: Weekly sync
tags:
  - work
  - meetings/weekly
topics: [go, cli]
---

# Notes

Discussed the #roadmap and #team/backend.
`)
	n, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Format != FormatYAML {
		t.Errorf("format = %q, want yaml", n.Format)
	}
	if n.Frontmatter["title"] != "Weekly sync" {
		t.Errorf("title = %v", n.Frontmatter["title"])
	}
	tags, ok := n.ListField("tags")
	if !ok || !reflect.DeepEqual(tags, []string{"work", "meetings/weekly"}) {
		t.Errorf("tags = %v, %v", tags, ok)
	}
	topics, ok := n.ListField("topics")
	if !ok || !reflect.DeepEqual(topics, []string{"go", "cli"}) {
		t.Errorf("topics = %v, %v", topics, ok)
	}
	if !reflect.DeepEqual(n.BodyTags, []string{"roadmap", "team/backend"}) {
		t.Errorf("body tags = %v", n.BodyTags)
	}
	if !strings.HasPrefix(n.Body, "# Notes") {
		t.Errorf("body = %q", n.Body)
	}
}

func TestParse_TOMLFrontmatter(t *testing.T) {
	raw := []byte("+++\ntitle = \"Draft\"\ntags = [\"writing\", \"blog\"]\n+++\nSome text #idea\n")
	n, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Format != FormatTOML {
		t.Errorf("format = %q, want toml", n.Format)
	}
	tags, ok := n.ListField("tags")
	if !ok || !reflect.DeepEqual(tags, []string{"writing", "blog"}) {
		t.Errorf("tags = %v, %v", tags, ok)
	}
	if !reflect.DeepEqual(n.BodyTags, []string{"idea"}) {
		t.Errorf("body tags = %v", n.BodyTags)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	n, err := Parse([]byte("# Just a note\n\nwith #one tag"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Format != FormatNone || len(n.Frontmatter) != 0 {
		t.Errorf("expected no frontmatter, got %q %v", n.Format, n.Frontmatter)
	}
	if !reflect.DeepEqual(n.BodyTags, []string{"one"}) {
		t.Errorf("body tags = %v", n.BodyTags)
	}
}

func TestParse_EmptyFrontmatter(t *testing.T) {
	n, err := Parse([]byte("---\n---\nbody #x\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Frontmatter == nil || len(n.Frontmatter) != 0 {
		t.Errorf("frontmatter = %v", n.Frontmatter)
	}
	if n.Body != "body #x\n" {
		t.Errorf("body = %q", n.Body)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"unterminated": "---\ntags: [a]\nno closing",
		"bad yaml":     "---\ntags: [a\n---\n",
		"bad toml":     "+++\ntags = \n+++\n",
		"yaml list":    "---\n- a\n- b\n---\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(raw)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestListField(t *testing.T) {
	n, err := Parse([]byte("---\ntags: single\nyears:\n  - 2024\n  - true\n  - null\n  - {a: b}\nempty: []\n---\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.ListField("tags"); ok {
		t.Error("string-valued tags should not count as a sequence")
	}
	if _, ok := n.ListField("missing"); ok {
		t.Error("missing field reported as present")
	}
	years, ok := n.ListField("years")
	if !ok || !reflect.DeepEqual(years, []string{"2024", "true"}) {
		t.Errorf("years = %v, %v", years, ok)
	}
	empty, ok := n.ListField("empty")
	if !ok || len(empty) != 0 {
		t.Errorf("empty = %v, %v", empty, ok)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.md")
	if err := os.WriteFile(path, []byte("---\ntags: [x]\n---\n"), 0644); err != nil {
		t.Fatal(err)
	}
	n, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if n.Path != path {
		t.Errorf("path = %q, want %q", n.Path, path)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("expected error for missing file")
	}
}
