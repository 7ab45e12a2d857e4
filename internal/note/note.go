package note

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FrontmatterFormat identifies how a note's metadata block was written.
type FrontmatterFormat string

const (
	FormatNone FrontmatterFormat = ""
	FormatYAML FrontmatterFormat = "yaml" // delimited by ---
	FormatTOML FrontmatterFormat = "toml" // delimited by +++
)

// Note is a parsed markdown document: its frontmatter, body and the tags
// written inline in the body.
type Note struct {
	Path        string
	Format      FrontmatterFormat
	Frontmatter map[string]any
	Body        string
	BodyTags    []string
}

// Parse splits a markdown document into frontmatter and body and extracts
// body tags. A document without frontmatter has an empty metadata map.
func Parse(raw []byte) (*Note, error) {
	content := strings.TrimPrefix(string(raw), "\ufeff")

	n := &Note{Frontmatter: map[string]any{}}
	fmRaw, body, format, err := split(content)
	if err != nil {
		return nil, err
	}
	n.Format = format
	n.Body = body

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(fmRaw), &n.Frontmatter); err != nil {
			return nil, fmt.Errorf("invalid frontmatter YAML: %w", err)
		}
		if n.Frontmatter == nil {
			n.Frontmatter = map[string]any{}
		}
	case FormatTOML:
		if _, err := toml.Decode(fmRaw, &n.Frontmatter); err != nil {
			return nil, fmt.Errorf("invalid frontmatter TOML: %w", err)
		}
	}

	n.BodyTags = ExtractBodyTags([]byte(body))
	return n, nil
}

// split finds the frontmatter block. The opening delimiter must be the very
// first line of the document.
func split(content string) (fm, body string, format FrontmatterFormat, err error) {
	var delim string
	switch {
	case hasDelimLine(content, "---"):
		delim, format = "---", FormatYAML
	case hasDelimLine(content, "+++"):
		delim, format = "+++", FormatTOML
	default:
		return "", content, FormatNone, nil
	}

	rest := content[len(delim):]
	rest = strings.TrimLeft(rest, " \t")
	if strings.HasPrefix(rest, "\r\n") {
		rest = rest[2:]
	} else {
		rest = strings.TrimPrefix(rest, "\n")
	}

	// empty block: closing delimiter straight away
	if strings.HasPrefix(rest, delim) {
		return "", strings.TrimLeft(rest[len(delim):], "\r\n"), format, nil
	}

	endIdx := strings.Index(rest, "\n"+delim)
	if endIdx == -1 {
		return "", "", format, fmt.Errorf("unterminated frontmatter: missing closing %s", delim)
	}
	fm = strings.TrimRight(rest[:endIdx], "\r")
	body = rest[endIdx+1+len(delim):]
	body = strings.TrimLeft(body, "\r\n")
	return fm, body, format, nil
}

func hasDelimLine(content, delim string) bool {
	if !strings.HasPrefix(content, delim) {
		return false
	}
	line := content[len(delim):]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line) == ""
}

// Load reads and parses a note from disk.
func Load(path string) (*Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}
	n, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	n.Path = path
	return n, nil
}

// ListField returns the entries of a sequence-valued frontmatter field.
// It reports false when the field is absent or not a sequence.
func (n *Note) ListField(key string) ([]string, bool) {
	return ListField(n.Frontmatter, key)
}

// ListField reads key from a frontmatter map as a list of strings. Scalars
// are stringified, nulls and nested structures are skipped.
func ListField(fm map[string]any, key string) ([]string, bool) {
	v, ok := fm[key]
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case nil:
		case map[string]any, []any:
			// nested structures are not tag names
		default:
			out = append(out, fmt.Sprint(s))
		}
	}
	return out, true
}
