package tagtree

import (
	"testing"
)

func TestEncode_MatchesPersistedLayout(t *testing.T) {
	tree := mustDecode(t, `{"work":{"meeting":{},"1:1":{}},"home":{}}`)
	data, err := Encode(tree)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"work\": {\n    \"meeting\": {},\n    \"1:1\": {}\n  },\n  \"home\": {}\n}"
	if string(data) != want {
		t.Errorf("Encode =\n%s\nwant\n%s", data, want)
	}
}

func TestEncode_EmptyTree(t *testing.T) {
	data, err := Encode(New())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{}" {
		t.Errorf("Encode(empty) = %q, want {}", data)
	}
}

func TestEncode_DoesNotEscapeHTML(t *testing.T) {
	tree := New()
	tree.Merge([]string{"r&d", "<draft>", `say "hi"`})
	data, err := Encode(tree)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"<draft>\": {},\n  \"r&d\": {},\n  \"say \\\"hi\\\"\": {}\n}"
	if string(data) != want {
		t.Errorf("Encode = %s, want %s", data, want)
	}
}

func TestDecodeEncode_RoundTrip(t *testing.T) {
	inputs := []string{
		"{}",
		"{\n  \"b\": {},\n  \"a\": {\n    \"c\": {}\n  }\n}",
		"{\n  \"projects\": {\n    \"go\": {\n      \"cli\": {}\n    }\n  },\n  \"ideas\": {}\n}",
	}
	for _, in := range inputs {
		tree := mustDecode(t, in)
		out, err := Encode(tree)
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != in {
			t.Errorf("round trip changed\n%s\ninto\n%s", in, out)
		}
	}
}

func TestDecode_Lenient(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty input", "", `{}`},
		{"whitespace", "  \n", `{}`},
		{"null leaf", `{"a":null}`, `{"a":{}}`},
		{"scalar leaf", `{"a":true,"b":1,"c":"x"}`, `{"a":{},"b":{},"c":{}}`},
		{"array leaf", `{"a":[{"x":{}},2]}`, `{"a":{}}`},
		{"duplicate key", `{"a":{},"b":{},"a":{"c":{}}}`, `{"a":{"c":{}},"b":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustDecode(t, tt.in)
			if got := compact(t, tree); got != tt.want {
				t.Errorf("Decode(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	for _, in := range []string{`[]`, `"x"`, `{"a":`, `{"a":{}} trailing`, `{}{}`} {
		if _, err := Decode([]byte(in)); err == nil {
			t.Errorf("Decode(%q) should fail", in)
		}
	}
}
