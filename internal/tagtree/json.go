package tagtree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MarshalJSON encodes the tree as nested objects keyed by tag name, keeping
// sibling order. A leaf is an empty object.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeObject(&buf, t.Roots); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeObject(buf *bytes.Buffer, nodes []*Node) error {
	buf.WriteByte('{')
	for i, n := range nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(buf, n.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeObject(buf, n.Children); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	var kb bytes.Buffer
	enc := json.NewEncoder(&kb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return fmt.Errorf("encode tag name %q: %w", key, err)
	}
	buf.Write(bytes.TrimRight(kb.Bytes(), "\n"))
	return nil
}

// Encode renders the tree the way it is persisted: two-space indentation,
// no trailing newline.
func Encode(t *Tree) ([]byte, error) {
	compact, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return nil, fmt.Errorf("indent tag structure: %w", err)
	}
	return out.Bytes(), nil
}

// UnmarshalJSON decodes nested objects into the tree, preserving key order.
// Values that are not objects are read as leaves. When a key repeats inside
// one object the last value wins and the first position is kept.
func (t *Tree) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read tag structure: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("tag structure must be a JSON object, got %v", tok)
	}
	roots, err := readObject(dec)
	if err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected data after tag structure")
	}
	t.Roots = roots
	return nil
}

// readObject consumes members up to and including the closing brace.
func readObject(dec *json.Decoder) ([]*Node, error) {
	var nodes []*Node
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read tag name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected tag name, got %v", tok)
		}
		children, err := readValue(dec)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", name, err)
		}
		if i, seen := index[name]; seen {
			nodes[i].Children = children
			continue
		}
		index[name] = len(nodes)
		nodes = append(nodes, &Node{Name: name, Children: children})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("close object: %w", err)
	}
	return nodes, nil
}

func readValue(dec *json.Decoder) ([]*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil, nil
	}
	switch d {
	case '{':
		return readObject(dec)
	case '[':
		return nil, skipArray(dec)
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", d)
	}
}

func skipArray(dec *json.Decoder) error {
	for dec.More() {
		if _, err := readValue(dec); err != nil {
			return err
		}
	}
	_, err := dec.Token()
	return err
}

// Decode parses a persisted tag structure. Empty or whitespace-only input is
// an empty tree.
func Decode(data []byte) (*Tree, error) {
	t := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return t, nil
	}
	if err := t.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return t, nil
}
