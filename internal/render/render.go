// Package render turns a tag tree into text, markdown and Graphviz output.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/kokistudios/tagtree/internal/tagtree"
)

// Text draws the tree with box-drawing connectors, one tag per line.
func Text(t *tagtree.Tree) string {
	var b strings.Builder
	writeText(&b, t.Roots, "")
	return b.String()
}

func writeText(b *strings.Builder, nodes []*tagtree.Node, prefix string) {
	for i, n := range nodes {
		last := i == len(nodes)-1
		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}
		b.WriteString(prefix + connector + n.Name + "\n")
		writeText(b, n.Children, prefix+indent)
	}
}

// Markdown renders the tree as a nested bullet list of #tags.
func Markdown(t *tagtree.Tree) string {
	var b strings.Builder
	t.Walk(func(n *tagtree.Node, depth int) bool {
		fmt.Fprintf(&b, "%s- `#%s`\n", strings.Repeat("  ", depth), n.Name)
		return true
	})
	return b.String()
}

// DOTOptions configures Graphviz output.
type DOTOptions struct {
	// Direction is the Graphviz rankdir; LR when empty.
	Direction string
}

// ToDOT converts the tree to a Graphviz digraph with one edge from every
// tag to each of its children.
func ToDOT(t *tagtree.Tree, opts DOTOptions) string {
	dir := opts.Direction
	if dir == "" {
		dir = "LR"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph tags {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", dir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("\n")

	var edges []string
	t.Walk(func(n *tagtree.Node, depth int) bool {
		attrs := fmt.Sprintf("label=%q", "#"+n.Name)
		if depth == 0 {
			attrs += ", fillcolor=\"#E8E0F0\""
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, attrs)
		for _, c := range n.Children {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", n.Name, c.Name))
		}
		return true
	})

	if len(edges) > 0 {
		buf.WriteString("\n")
		for _, e := range edges {
			buf.WriteString(e)
		}
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG lays out a DOT graph with the embedded Graphviz and returns SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
