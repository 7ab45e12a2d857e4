package vault

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeNote(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpen_IndexesMarkdownOnly(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "---\ntags: [x]\n---\n#body")
	writeNote(t, root, "sub/b.MD", "plain #y")
	writeNote(t, root, "c.txt", "#ignored")
	writeNote(t, root, ".obsidian/d.md", "#hidden")
	writeNote(t, root, ".hidden.md", "#hidden")

	v, err := Open(context.Background(), root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := v.Files(); !reflect.DeepEqual(got, []string{"a.md", "sub/b.MD"}) {
		t.Errorf("Files = %v", got)
	}

	meta, ok := v.Metadata("a.md")
	if !ok {
		t.Fatal("a.md has no metadata")
	}
	if tags, _ := meta.ListField("tags"); !reflect.DeepEqual(tags, []string{"x"}) {
		t.Errorf("frontmatter tags = %v", tags)
	}
	if !reflect.DeepEqual(meta.Tags, []string{"body"}) {
		t.Errorf("body tags = %v", meta.Tags)
	}
}

func TestMetadata_UnparseableNote(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "broken.md", "---\ntags: [x\n")

	v, err := Open(context.Background(), root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Files()) != 1 {
		t.Fatalf("Files = %v", v.Files())
	}
	if _, ok := v.Metadata("broken.md"); ok {
		t.Error("broken note should have no metadata")
	}
	if _, ok := v.Metadata("missing.md"); ok {
		t.Error("unknown note should have no metadata")
	}
}

func TestRefresh_PicksUpChanges(t *testing.T) {
	root := t.TempDir()
	path := writeNote(t, root, "a.md", "#old")

	v, err := Open(context.Background(), root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("#new and more"), 0644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	writeNote(t, root, "b.md", "#b")

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	meta, _ := v.Metadata("a.md")
	if meta == nil || !reflect.DeepEqual(meta.Tags, []string{"new"}) {
		t.Errorf("a.md tags = %v", meta)
	}
	if len(v.Files()) != 2 {
		t.Errorf("Files = %v", v.Files())
	}

	os.Remove(path)
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := v.Files(); !reflect.DeepEqual(got, []string{"b.md"}) {
		t.Errorf("Files after delete = %v", got)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Error("expected error for missing vault")
	}
	file := writeNote(t, t.TempDir(), "f.md", "")
	if _, err := Open(context.Background(), file, nil); err == nil {
		t.Error("expected error for file vault")
	}
}

func TestAbs(t *testing.T) {
	v := &Vault{Root: "/notes"}
	if got := v.Abs("a/b.md"); got != filepath.Join("/notes", "a", "b.md") {
		t.Errorf("Abs = %q", got)
	}
}
