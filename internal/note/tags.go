package note

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	inlineTagRe = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}\p{M}_/\-]+)`)
	markdown    = goldmark.New()
)

// NormalizeTag turns a raw tag occurrence into a tag name: surrounding
// whitespace and a leading # are removed.
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "#")
	return strings.TrimSpace(tag)
}

// NormalizeTags normalizes every tag and drops the ones that end up empty.
func NormalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		if t := NormalizeTag(tag); t != "" {
			result = append(result, t)
		}
	}
	return result
}

// ExtractBodyTags returns the #tags written in running text, in order of
// appearance, without the leading #. Code spans, code blocks and raw HTML are
// ignored, as are purely numeric tags.
func ExtractBodyTags(body []byte) []string {
	doc := markdown.Parser().Parse(text.NewReader(body))

	var tags []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.CodeSpan, *ast.RawHTML, *ast.AutoLink:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			// goldmark splits running text at delimiter characters such as
			// '_', so adjacent text nodes are scanned as one run.
			if _, cont := node.PreviousSibling().(*ast.Text); cont {
				return ast.WalkContinue, nil
			}
			tags = append(tags, tagsInRun(node, body)...)
		}
		return ast.WalkContinue, nil
	})
	return tags
}

func tagsInRun(first *ast.Text, src []byte) []string {
	var run []byte
	for n := ast.Node(first); n != nil; n = n.NextSibling() {
		t, ok := n.(*ast.Text)
		if !ok {
			break
		}
		run = append(run, t.Segment.Value(src)...)
		if t.SoftLineBreak() || t.HardLineBreak() {
			run = append(run, '\n')
		}
	}

	// a run glued to a preceding inline (emphasis, link) does not start a word
	gluedStart := first.PreviousSibling() != nil

	var out []string
	for _, m := range inlineTagRe.FindAllSubmatchIndex(run, -1) {
		if m[0] == 0 && run[0] == '#' && gluedStart {
			continue
		}
		tag := string(run[m[2]:m[3]])
		if !hasNonDigit(tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func hasNonDigit(tag string) bool {
	for _, r := range tag {
		if !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
