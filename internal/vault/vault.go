// Package vault is a read-only, cached index over a folder of markdown notes.
package vault

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kokistudios/tagtree/internal/note"
)

// Metadata is the cached view of one note.
type Metadata struct {
	Path        string // relative to the vault root, slash separated
	Frontmatter map[string]any
	Tags        []string // body tag occurrences, without '#'
}

// ListField returns the entries of a sequence-valued frontmatter field.
func (m *Metadata) ListField(key string) ([]string, bool) {
	return note.ListField(m.Frontmatter, key)
}

// Index exposes the notes of a collection and their cached metadata.
type Index interface {
	Files() []string
	Metadata(path string) (*Metadata, bool)
}

type entry struct {
	modTime time.Time
	size    int64
	meta    *Metadata // nil when the note could not be parsed
}

// Vault indexes every .md file under Root. Hidden files and directories are
// skipped, which also keeps .tagtree and .git out of the index.
type Vault struct {
	Root   string
	logger *log.Logger

	mu      sync.RWMutex
	entries map[string]entry
}

// Open creates a vault index for root and performs an initial scan.
func Open(ctx context.Context, root string, logger *log.Logger) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid vault path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault path is not a directory: %s", abs)
	}
	if logger == nil {
		logger = log.Default()
	}
	v := &Vault{Root: abs, logger: logger, entries: make(map[string]entry)}
	if err := v.Refresh(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Refresh rescans the vault. Notes whose size and modification time did not
// change keep their cached metadata.
func (v *Vault) Refresh(ctx context.Context) error {
	v.mu.RLock()
	prev := v.entries
	v.mu.RUnlock()

	next := make(map[string]entry, len(prev))
	err := filepath.WalkDir(v.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			v.logger.Warn("skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != v.Root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}

		rel, err := filepath.Rel(v.Root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			v.logger.Warn("skipping note", "path", rel, "err", err)
			return nil
		}
		if old, ok := prev[rel]; ok && old.size == info.Size() && old.modTime.Equal(info.ModTime()) {
			next[rel] = old
			return nil
		}
		next[rel] = entry{modTime: info.ModTime(), size: info.Size(), meta: v.parse(path, rel)}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan vault: %w", err)
	}

	v.mu.Lock()
	v.entries = next
	v.mu.Unlock()
	return nil
}

func (v *Vault) parse(path, rel string) *Metadata {
	n, err := note.Load(path)
	if err != nil {
		v.logger.Debug("note has no usable metadata", "path", rel, "err", err)
		return nil
	}
	return &Metadata{Path: rel, Frontmatter: n.Frontmatter, Tags: n.BodyTags}
}

// Files returns the indexed note paths, sorted.
func (v *Vault) Files() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	files := make([]string, 0, len(v.entries))
	for p := range v.entries {
		files = append(files, p)
	}
	sort.Strings(files)
	return files
}

// Metadata returns the cached metadata of a note. It reports false when the
// note is unknown or could not be parsed.
func (v *Vault) Metadata(path string) (*Metadata, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.entries[path]
	if !ok || e.meta == nil {
		return nil, false
	}
	return e.meta, true
}

// Abs resolves a path relative to the vault root.
func (v *Vault) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(v.Root, filepath.FromSlash(rel))
}
