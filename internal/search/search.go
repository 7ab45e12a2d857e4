// Package search turns a tag selection into a query and runs it against the
// vault.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/kokistudios/tagtree/internal/collector"
	"github.com/kokistudios/tagtree/internal/note"
	"github.com/kokistudios/tagtree/internal/vault"
)

// BuildQuery joins the selected tags, each quoted, with single spaces.
func BuildQuery(selection []string) string {
	parts := make([]string, 0, len(selection))
	for _, tag := range selection {
		parts = append(parts, strconv.Quote(tag))
	}
	return strings.Join(parts, " ")
}

// ParseQuery splits a query into tag names. Quoted terms are unquoted; bare
// words are accepted as well. Names are normalized and empty terms dropped.
func ParseQuery(q string) ([]string, error) {
	var terms []string
	rest := strings.TrimSpace(q)
	for rest != "" {
		var term string
		if rest[0] == '"' {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("unterminated quote in query: %s", rest)
			}
			term, _ = strconv.Unquote(quoted)
			rest = rest[len(quoted):]
		} else {
			end := strings.IndexFunc(rest, unicode.IsSpace)
			if end < 0 {
				end = len(rest)
			}
			term, rest = rest[:end], rest[end:]
		}
		if t := note.NormalizeTag(term); t != "" {
			terms = append(terms, t)
		}
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
	}
	return terms, nil
}

// Surface holds one query and its results. The panel reuses a surface for
// every selection change.
type Surface struct {
	index      vault.Index
	extraField string

	mu      sync.RWMutex
	query   string
	results []string
}

// NewSurface creates an empty surface over index.
func NewSurface(index vault.Index, extraField string) *Surface {
	return &Surface{index: index, extraField: extraField}
}

// SetQuery replaces the query and runs it. An empty query clears the
// results.
func (s *Surface) SetQuery(ctx context.Context, q string) ([]string, error) {
	terms, err := ParseQuery(q)
	if err != nil {
		return nil, err
	}
	var results []string
	if len(terms) > 0 {
		results, err = Match(ctx, s.index, s.extraField, terms)
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.query = q
	s.results = results
	s.mu.Unlock()
	return results, nil
}

// Clear resets the query and results.
func (s *Surface) Clear() {
	s.mu.Lock()
	s.query = ""
	s.results = nil
	s.mu.Unlock()
}

// Query returns the current query.
func (s *Surface) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Results returns the notes matched by the current query.
func (s *Surface) Results() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.results...)
}

// Match returns the notes, in index order, that carry every tag in terms.
func Match(ctx context.Context, index vault.Index, extraField string, terms []string) ([]string, error) {
	var out []string
	for _, path := range index.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, ok := index.Metadata(path)
		if !ok {
			continue
		}
		have := make(map[string]struct{})
		for _, t := range collector.NoteTags(meta, extraField) {
			have[t] = struct{}{}
		}
		if hasAll(have, terms) {
			out = append(out, path)
		}
	}
	return out, nil
}

func hasAll(have map[string]struct{}, terms []string) bool {
	for _, t := range terms {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}
