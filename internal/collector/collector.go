package collector

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/tagtree/internal/note"
	"github.com/kokistudios/tagtree/internal/vault"
)

// TagsField is the frontmatter field that always contributes tags.
const TagsField = "tags"

// Source supplies the current set of tag names.
type Source interface {
	Collect(ctx context.Context) (map[string]struct{}, error)
}

// Refresher is implemented by sources and indexes that can rescan their
// notes.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Collector gathers tags from body annotations, the "tags" frontmatter field
// and an optional extra frontmatter field.
type Collector struct {
	index      vault.Index
	extraField string
	logger     *log.Logger
}

// New creates a collector over index. extraField may be empty.
func New(index vault.Index, extraField string, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.Default()
	}
	return &Collector{index: index, extraField: extraField, logger: logger}
}

// Collect returns the union of tag names across all notes. Notes without
// metadata contribute nothing. The error is only non-nil when ctx is done.
func (c *Collector) Collect(ctx context.Context) (map[string]struct{}, error) {
	tags := make(map[string]struct{})
	skipped := 0
	for _, path := range c.index.Files() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, ok := c.index.Metadata(path)
		if !ok {
			skipped++
			continue
		}
		for _, t := range NoteTags(meta, c.extraField) {
			tags[t] = struct{}{}
		}
	}
	c.logger.Debug("collected tags", "tags", len(tags), "skipped", skipped)
	return tags, nil
}

// Refresh rescans the underlying index when it supports rescanning.
func (c *Collector) Refresh(ctx context.Context) error {
	if r, ok := c.index.(Refresher); ok {
		return r.Refresh(ctx)
	}
	return nil
}

// NoteTags returns the normalized tags of one note, possibly with duplicates.
func NoteTags(meta *vault.Metadata, extraField string) []string {
	raw := append([]string(nil), meta.Tags...)
	if list, ok := meta.ListField(TagsField); ok {
		raw = append(raw, list...)
	}
	if extraField != "" && extraField != TagsField {
		if list, ok := meta.ListField(extraField); ok {
			raw = append(raw, list...)
		}
	}
	return note.NormalizeTags(raw)
}

// Sorted returns the members of a tag set in lexicographic order.
func Sorted(tags map[string]struct{}) []string {
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
