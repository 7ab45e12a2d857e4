package search

import (
	"context"
	"reflect"
	"testing"

	"github.com/kokistudios/tagtree/internal/vault"
)

type fakeIndex map[string]*vault.Metadata

func (f fakeIndex) Files() []string { return []string{"a.md", "b.md", "c.md", "broken.md"} }

func (f fakeIndex) Metadata(path string) (*vault.Metadata, bool) {
	m := f[path]
	return m, m != nil
}

func index() fakeIndex {
	return fakeIndex{
		"a.md": {Tags: []string{"work", "go"}},
		"b.md": {Frontmatter: map[string]any{"tags": []any{"work"}, "topics": []any{"go"}}},
		"c.md": {Tags: []string{"home"}},
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		selection []string
		want      string
	}{
		{nil, ""},
		{[]string{"work"}, `"work"`},
		{[]string{"work", "go lang"}, `"work" "go lang"`},
		{[]string{`say "hi"`}, `"say \"hi\""`},
	}
	for _, tt := range tests {
		if got := BuildQuery(tt.selection); got != tt.want {
			t.Errorf("BuildQuery(%q) = %s, want %s", tt.selection, got, tt.want)
		}
	}
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		q    string
		want []string
	}{
		{"", nil},
		{`"work" "go lang"`, []string{"work", "go lang"}},
		{`  "a"   b  #c `, []string{"a", "b", "c"}},
		{`"say \"hi\""`, []string{`say "hi"`}},
		{`"" "#"`, nil},
	}
	for _, tt := range tests {
		got, err := ParseQuery(tt.q)
		if err != nil {
			t.Errorf("ParseQuery(%s): %v", tt.q, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseQuery(%s) = %q, want %q", tt.q, got, tt.want)
		}
	}

	if _, err := ParseQuery(`"open`); err == nil {
		t.Error("expected error for unterminated quote")
	}
}

func TestQueryRoundTrip(t *testing.T) {
	sel := []string{"work", "with space", `quote"d`, "ünïcode"}
	got, err := ParseQuery(BuildQuery(sel))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, sel) {
		t.Errorf("round trip = %q, want %q", got, sel)
	}
}

func TestSurface(t *testing.T) {
	s := NewSurface(index(), "")
	ctx := context.Background()

	got, err := s.SetQuery(ctx, BuildQuery([]string{"work"}))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"a.md", "b.md"}) {
		t.Errorf("work = %v", got)
	}

	got, _ = s.SetQuery(ctx, BuildQuery([]string{"work", "go"}))
	if !reflect.DeepEqual(got, []string{"a.md"}) {
		t.Errorf("work+go = %v", got)
	}
	if s.Query() != `"work" "go"` {
		t.Errorf("Query = %s", s.Query())
	}

	got, _ = s.SetQuery(ctx, "")
	if got != nil || s.Results() != nil {
		t.Errorf("empty query = %v", got)
	}

	s.SetQuery(ctx, `"home"`)
	s.Clear()
	if s.Query() != "" || len(s.Results()) != 0 {
		t.Error("Clear left state behind")
	}
}

func TestSurface_ExtraField(t *testing.T) {
	s := NewSurface(index(), "topics")
	got, _ := s.SetQuery(context.Background(), `"work" "go"`)
	if !reflect.DeepEqual(got, []string{"a.md", "b.md"}) {
		t.Errorf("work+go with topics = %v", got)
	}
}

func TestSurface_BadQueryKeepsState(t *testing.T) {
	s := NewSurface(index(), "")
	s.SetQuery(context.Background(), `"home"`)
	if _, err := s.SetQuery(context.Background(), `"oops`); err == nil {
		t.Fatal("expected error")
	}
	if s.Query() != `"home"` {
		t.Errorf("Query = %s", s.Query())
	}
}
