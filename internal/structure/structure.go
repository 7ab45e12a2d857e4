// Package structure persists the tag hierarchy of a vault and keeps it in
// step with the tags that actually occur in the notes.
//
// Every operation runs a full cycle: read the document, merge and prune it
// against the collector, apply the mutation (if any) and write the document
// back. Cycles never overlap; concurrent Load calls share one cycle.
package structure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/kokistudios/tagtree/internal/collector"
	"github.com/kokistudios/tagtree/internal/tagtree"
)

// ErrNotSaved wraps write failures. The tree returned alongside it is still
// the current state for the session.
var ErrNotSaved = errors.New("tag structure not saved")

// Store is bound to one structure document.
type Store struct {
	path   string
	source collector.Source
	mode   tagtree.PruneMode
	logger *log.Logger

	mu    sync.Mutex // serialises load/mutate/save cycles
	group singleflight.Group

	treeMu sync.RWMutex
	tree   *tagtree.Tree
}

// Options configures a Store.
type Options struct {
	Prune  tagtree.PruneMode
	Logger *log.Logger
}

// New creates a store for the document at path fed by source.
func New(path string, source collector.Source, opts Options) *Store {
	mode := opts.Prune
	if !tagtree.ValidPruneMode(mode) {
		mode = tagtree.PrunePromote
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		path:   path,
		source: source,
		mode:   mode,
		logger: logger.With("structure", filepath.Base(path)),
		tree:   tagtree.New(),
	}
}

// Path returns the location of the structure document.
func (s *Store) Path() string { return s.path }

// Tree returns a copy of the most recently loaded tree.
func (s *Store) Tree() *tagtree.Tree {
	s.treeMu.RLock()
	defer s.treeMu.RUnlock()
	return s.tree.Clone()
}

// Load reads the document, reconciles it with the collected tags and writes
// it back. A missing or unparseable document starts from an empty tree. On
// a write failure the reconciled tree is still returned, with an error
// wrapping ErrNotSaved.
func (s *Store) Load(ctx context.Context) (*tagtree.Tree, error) {
	v, err, _ := s.group.Do("load", func() (any, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.load(ctx)
	})
	tree, _ := v.(*tagtree.Tree)
	if tree != nil {
		tree = tree.Clone()
	}
	return tree, err
}

// Refresh rescans the notes when the source supports it, then loads.
func (s *Store) Refresh(ctx context.Context) (*tagtree.Tree, error) {
	if r, ok := s.source.(collector.Refresher); ok {
		if err := r.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			s.logger.Warn("rescan failed, using cached notes", "err", err)
		}
	}
	return s.Load(ctx)
}

// Move re-parents dragged under target. A move that is not applied leaves
// the document as reconciled by the load.
func (s *Store) Move(ctx context.Context, dragged, target string) (tagtree.MoveResult, *tagtree.Tree, error) {
	var res tagtree.MoveResult
	tree, err := s.mutate(ctx, func(t *tagtree.Tree) bool {
		res = t.Move(dragged, target)
		if !res.Applied() {
			s.logger.Debug("move ignored", "tag", dragged, "target", target, "reason", res)
		}
		return res.Applied()
	})
	return res, tree, err
}

// Unnest moves name to the end of the top level. It reports false when the
// tag is not in the tree.
func (s *Store) Unnest(ctx context.Context, name string) (bool, *tagtree.Tree, error) {
	var ok bool
	tree, err := s.mutate(ctx, func(t *tagtree.Tree) bool {
		ok = t.Unnest(name)
		if !ok {
			s.logger.Debug("unnest ignored, tag not found", "tag", name)
		}
		return ok
	})
	return ok, tree, err
}

// Save overwrites the document with tree and makes it the current tree.
func (s *Store) Save(tree *tagtree.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(tree)
}

func (s *Store) mutate(ctx context.Context, fn func(*tagtree.Tree) bool) (*tagtree.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, err := s.load(ctx)
	if tree == nil {
		return nil, err
	}
	if !fn(tree) {
		return tree.Clone(), err
	}
	if err := s.save(tree); err != nil {
		return tree.Clone(), err
	}
	return tree.Clone(), nil
}

func (s *Store) load(ctx context.Context) (*tagtree.Tree, error) {
	tree := s.read()

	current, err := s.source.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect tags: %w", err)
	}
	added := tree.Merge(collector.Sorted(current))
	removed := tree.Prune(current, s.mode)
	if len(added) > 0 || len(removed) > 0 {
		s.logger.Debug("reconciled tag structure", "added", added, "removed", removed)
	}

	return tree, s.save(tree)
}

// read returns the persisted tree, creating the document when it is absent.
// Every failure degrades to an empty tree.
func (s *Store) read() *tagtree.Tree {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if err := s.write([]byte("{}")); err != nil {
			s.logger.Warn("cannot create tag structure", "path", s.path, "err", err)
		}
		return tagtree.New()
	}
	if err != nil {
		s.logger.Error("cannot read tag structure, starting empty", "path", s.path, "err", err)
		return tagtree.New()
	}
	tree, err := tagtree.Decode(data)
	if err != nil {
		s.logger.Error("invalid tag structure, starting empty", "path", s.path, "err", err)
		return tagtree.New()
	}
	if dups := tree.Duplicates(); len(dups) > 0 {
		s.logger.Warn("tag structure repeats tags", "path", s.path, "tags", dups)
	}
	return tree
}

func (s *Store) save(tree *tagtree.Tree) error {
	s.treeMu.Lock()
	s.tree = tree.Clone()
	s.treeMu.Unlock()

	data, err := tagtree.Encode(tree)
	if err != nil {
		s.logger.Error("cannot encode tag structure", "err", err)
		return fmt.Errorf("%w: %v", ErrNotSaved, err)
	}
	if err := s.write(data); err != nil {
		s.logger.Error("cannot write tag structure", "path", s.path, "err", err)
		return fmt.Errorf("%w: %v", ErrNotSaved, err)
	}
	return nil
}

func (s *Store) write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
