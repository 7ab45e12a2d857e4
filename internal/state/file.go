package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// FileStore keeps state in a JSON document shared by several keys, so one
// file can hold the state of more than one vault.
type FileStore struct {
	mu     sync.Mutex
	path   string
	key    string
	logger *log.Logger
}

// NewFileStore creates a store for key inside the document at path.
func NewFileStore(path, key string, logger *log.Logger) *FileStore {
	if logger == nil {
		logger = log.Default()
	}
	return &FileStore{path: path, key: key, logger: logger}
}

// Load returns the state under the store's key. A missing or invalid
// document yields empty state.
func (s *FileStore) Load(ctx context.Context) (Visibility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return nil, err
	}
	return decode(doc[s.key], s.logger, s.path), nil
}

// Save replaces the state under the store's key, keeping other keys.
func (s *FileStore) Save(ctx context.Context, v Visibility) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDoc()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal visibility state: %w", err)
	}
	doc[s.key] = raw

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

func (s *FileStore) readDoc() (map[string]json.RawMessage, error) {
	doc := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("state file is not valid JSON, starting over", "path", s.path, "err", err)
		return make(map[string]json.RawMessage), nil
	}
	return doc, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the state document location.
func (s *FileStore) Path() string { return s.path }

var _ Store = (*FileStore)(nil)
