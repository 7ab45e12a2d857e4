package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown writes md to w styled for the terminal. When glamour cannot
// render, the raw markdown is written instead.
func RenderMarkdown(w io.Writer, md string) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}

	out, err := renderer.Render(md)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}

	fmt.Fprint(w, out)
}
