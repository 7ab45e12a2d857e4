package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/kokistudios/tagtree/internal/store"
	"github.com/kokistudios/tagtree/internal/ui"
)

func setupVault(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".tagtree")
	vaultDir := t.TempDir()
	t.Setenv("TAGTREE_HOME", home)
	if err := store.Init(home, vaultDir, false); err != nil {
		t.Fatal(err)
	}
	notes := map[string]string{
		"a.md": "---\ntags: [work]\n---\nnotes about #meetings\n",
		"b.md": "plain #home note\n",
	}
	for name, body := range notes {
		if err := os.WriteFile(filepath.Join(vaultDir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return vaultDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	old := ui.Stdout
	ui.Stdout = &buf
	defer func() { ui.Stdout = old }()

	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"init", "tags", "tree", "move", "unnest", "search", "panel", "config", "doctor", "completion", "mcp-serve"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestTreeJSON(t *testing.T) {
	vaultDir := setupVault(t)

	out, err := run(t, "tree", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"home\": {},\n  \"meetings\": {},\n  \"work\": {}\n}\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if _, err := os.Stat(filepath.Join(vaultDir, store.DefaultStructureFile)); err != nil {
		t.Errorf("structure document not written: %v", err)
	}
}

func TestMoveAndUnnest(t *testing.T) {
	vaultDir := setupVault(t)
	doc := filepath.Join(vaultDir, store.DefaultStructureFile)

	if _, err := run(t, "move", "#meetings", "work"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(doc)
	want := "{\n  \"home\": {},\n  \"work\": {\n    \"meetings\": {}\n  }\n}"
	if string(data) != want {
		t.Errorf("after move = %q", data)
	}

	if _, err := run(t, "unnest", "meetings"); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(doc)
	want = "{\n  \"home\": {},\n  \"work\": {},\n  \"meetings\": {}\n}"
	if string(data) != want {
		t.Errorf("after unnest = %q", data)
	}

	if _, err := run(t, "unnest", "missing"); err == nil {
		t.Error("expected error for unknown tag")
	}
}

func TestTreeText(t *testing.T) {
	setupVault(t)
	if _, err := run(t, "move", "meetings", "work"); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "tree", "--sort", "desc")
	if err != nil {
		t.Fatal(err)
	}
	want := "├── work\n│   └── meetings\n└── home\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSearch(t *testing.T) {
	setupVault(t)
	out, err := run(t, "search", "work", "meetings")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains([]byte(out), []byte("a.md")) || bytes.Contains([]byte(out), []byte("b.md")) {
		t.Errorf("output = %q", out)
	}
}

func TestUnknownFormat(t *testing.T) {
	setupVault(t)
	if _, err := run(t, "tree", "--format", "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNotInitialized(t *testing.T) {
	t.Setenv("TAGTREE_HOME", filepath.Join(t.TempDir(), "missing"))
	if _, err := run(t, "tree"); err == nil {
		t.Error("expected error without TAGTREE_HOME")
	}
}

func TestInitForceYes(t *testing.T) {
	setupVault(t)
	other := t.TempDir()

	if _, err := run(t, "init", other); err == nil {
		t.Fatal("expected error reinitializing without --force")
	}
	if _, err := run(t, "init", "--force", "--yes", other); err != nil {
		t.Fatal(err)
	}
	s, err := store.Load(store.Home())
	if err != nil {
		t.Fatal(err)
	}
	if s.Config.Vault.Path != other {
		t.Errorf("vault.path = %q, want %q", s.Config.Vault.Path, other)
	}
}
