// Package state persists the expanded/collapsed flag of each tag shown in
// the panel. It lives apart from the tag structure and may mention tags that
// no longer exist; those entries are ignored by readers.
//
// Backends:
//   - file: a JSON document in TAGTREE_HOME holding one entry per key
//   - redis: a JSON value per key, for sharing state between machines
//   - memory: process-lifetime state for tests and one-shot commands
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Visibility maps a tag name to whether its children are shown.
type Visibility map[string]bool

// Clone returns an independent copy.
func (v Visibility) Clone() Visibility {
	out := make(Visibility, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// Store loads and saves visibility state under a fixed key.
type Store interface {
	Load(ctx context.Context) (Visibility, error)
	Save(ctx context.Context, v Visibility) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend     string // "file", "redis" or "memory"
	Key         string
	Path        string // file backend
	RedisAddr   string
	RedisPrefix string
	Logger      *log.Logger
}

// Open returns the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("state key must not be empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Path, cfg.Key, cfg.Logger), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix+cfg.Key, cfg.Logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown state backend: %q", cfg.Backend)
	}
}

// decode parses a stored value. Content that is not a JSON object of
// booleans yields empty state.
func decode(data []byte, logger *log.Logger, where string) Visibility {
	v := make(Visibility)
	if len(data) == 0 {
		return v
	}
	if err := json.Unmarshal(data, &v); err != nil {
		logger.Warn("ignoring invalid visibility state", "where", where, "err", err)
		return make(Visibility)
	}
	return v
}

// MemoryStore keeps state in memory.
type MemoryStore struct {
	mu sync.Mutex
	v  Visibility
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{v: make(Visibility)}
}

func (m *MemoryStore) Load(ctx context.Context) (Visibility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, v Visibility) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.v = v.Clone()
	return nil
}

func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
