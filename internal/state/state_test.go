package state

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := NewFileStore(path, "tagState", nil)
	ctx := context.Background()

	v, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 0 {
		t.Errorf("fresh state = %v", v)
	}

	want := Visibility{"work": true, "home": false}
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := NewFileStore(path, "tagState", nil).Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}
}

func TestFileStore_KeysAreIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()
	a := NewFileStore(path, "a", nil)
	b := NewFileStore(path, "b", nil)

	a.Save(ctx, Visibility{"x": true})
	b.Save(ctx, Visibility{"y": true})

	got, _ := a.Load(ctx)
	if !reflect.DeepEqual(got, Visibility{"x": true}) {
		t.Errorf("a = %v", got)
	}
	got, _ = b.Load(ctx)
	if !reflect.DeepEqual(got, Visibility{"y": true}) {
		t.Errorf("b = %v", got)
	}
}

func TestFileStore_InvalidContent(t *testing.T) {
	tests := map[string]string{
		"not json":      "{oops",
		"wrong shape":   `{"tagState": ["a"]}`,
		"non bool flag": `{"tagState": {"a": "yes"}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.json")
			os.WriteFile(path, []byte(content), 0644)
			s := NewFileStore(path, "tagState", nil)

			v, err := s.Load(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if len(v) != 0 {
				t.Errorf("Load = %v, want empty", v)
			}
			if err := s.Save(context.Background(), Visibility{"a": true}); err != nil {
				t.Errorf("Save after invalid content: %v", err)
			}
		})
	}
}

func TestMemoryStore_Copies(t *testing.T) {
	s := NewMemoryStore()
	v := Visibility{"a": true}
	s.Save(context.Background(), v)
	v["a"] = false

	got, _ := s.Load(context.Background())
	if !got["a"] {
		t.Error("Save should copy the state")
	}
	got["b"] = true
	again, _ := s.Load(context.Background())
	if _, ok := again["b"]; ok {
		t.Error("Load should return a copy")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	s, err := Open(ctx, Config{Backend: "file", Key: "k", Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if fs, ok := s.(*FileStore); !ok || fs.Path() != path {
		t.Errorf("Open(file) = %T", s)
	}
	if s, err := Open(ctx, Config{Backend: "memory", Key: "k"}); err != nil {
		t.Error(err)
	} else if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("Open(memory) = %T", s)
	}
	if _, err := Open(ctx, Config{Backend: "sqlite", Key: "k"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := Open(ctx, Config{Backend: "file"}); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TAGTREE_TEST_REDIS")
	if addr == "" {
		t.Skip("TAGTREE_TEST_REDIS not set")
	}
	ctx := context.Background()
	key := "tagtree:test:" + t.Name()
	s, err := NewRedisStore(ctx, addr, key, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	defer s.client.Del(ctx, key)

	want := Visibility{"a": true}
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}
}
