package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kokistudios/tagtree/internal/tagtree"
)

const (
	DefaultStructureFile = "tag-structure.json"
	DefaultStateKey      = "tagState"

	BackendFile  = "file"
	BackendRedis = "redis"
)

// VaultConfig locates the notes and the persisted tag structure.
type VaultConfig struct {
	Path          string `yaml:"path"`
	StructureFile string `yaml:"structure_file"`        // relative to the vault unless absolute
	ExtraField    string `yaml:"extra_field,omitempty"` // additional frontmatter field read as tags
}

// TreeConfig holds tag hierarchy behavior settings.
type TreeConfig struct {
	PruneOrphans tagtree.PruneMode `yaml:"prune_orphans"`
}

// StateConfig selects where panel visibility state lives.
type StateConfig struct {
	Backend     string `yaml:"backend"`
	Key         string `yaml:"key"`
	RedisAddr   string `yaml:"redis_addr,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Config holds tagtree configuration.
type Config struct {
	Version string      `yaml:"version"`
	Vault   VaultConfig `yaml:"vault"`
	Tree    TreeConfig  `yaml:"tree"`
	State   StateConfig `yaml:"state"`
	Log     LogConfig   `yaml:"log"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Version: "1",
		Vault: VaultConfig{
			StructureFile: DefaultStructureFile,
		},
		Tree: TreeConfig{
			PruneOrphans: tagtree.PrunePromote,
		},
		State: StateConfig{
			Backend:     BackendFile,
			Key:         DefaultStateKey,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "tagtree:",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Store represents a loaded TAGTREE_HOME.
type Store struct {
	Home   string
	Config Config
}

// Issue represents a health check finding.
type Issue struct {
	Severity string // "warning" or "error"
	Message  string
}

// Home returns the TAGTREE_HOME path, respecting the TAGTREE_HOME env var.
func Home() string {
	if h := os.Getenv("TAGTREE_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".tagtree")
	}
	return filepath.Join(home, ".tagtree")
}

// Init creates TAGTREE_HOME with a default config.yaml. vaultPath, when not
// empty, is stored as the default vault.
func Init(home, vaultPath string, force bool) error {
	if _, err := os.Stat(home); err == nil && !force {
		return fmt.Errorf("TAGTREE_HOME already exists at %s (use --force to reinitialize)", home)
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", home, err)
	}

	cfg := DefaultConfig()
	if vaultPath != "" {
		abs, err := filepath.Abs(vaultPath)
		if err != nil {
			return fmt.Errorf("invalid vault path: %w", err)
		}
		cfg.Vault.Path = abs
	}
	return writeConfig(home, cfg)
}

func writeConfig(home string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Load reads an existing TAGTREE_HOME. Missing config fields are filled from
// defaults.
func Load(home string) (*Store, error) {
	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read TAGTREE_HOME config at %s: %w", cfgPath, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return &Store{Home: home, Config: cfg}, nil
}

// SaveConfig writes the current config to config.yaml.
func (s *Store) SaveConfig() error {
	return writeConfig(s.Home, s.Config)
}

// ConfigKeys lists the keys accepted by SetConfigValue.
var ConfigKeys = []string{
	"vault.path",
	"vault.structure_file",
	"vault.extra_field",
	"tree.prune_orphans",
	"state.backend",
	"state.key",
	"state.redis_addr",
	"state.redis_prefix",
	"log.level",
}

// SetConfigValue sets a config value by dot-path key (e.g. "vault.path").
func (s *Store) SetConfigValue(key, value string) error {
	switch key {
	case "vault.path":
		abs, err := filepath.Abs(value)
		if err != nil {
			return fmt.Errorf("invalid vault path: %w", err)
		}
		s.Config.Vault.Path = abs
	case "vault.structure_file":
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("vault.structure_file must not be empty")
		}
		s.Config.Vault.StructureFile = value
	case "vault.extra_field":
		s.Config.Vault.ExtraField = strings.TrimSpace(value)
	case "tree.prune_orphans":
		mode := tagtree.PruneMode(value)
		if !tagtree.ValidPruneMode(mode) {
			return fmt.Errorf("tree.prune_orphans must be %q or %q", tagtree.PrunePromote, tagtree.PruneDiscard)
		}
		s.Config.Tree.PruneOrphans = mode
	case "state.backend":
		if value != BackendFile && value != BackendRedis {
			return fmt.Errorf("state.backend must be %q or %q", BackendFile, BackendRedis)
		}
		s.Config.State.Backend = value
	case "state.key":
		if value == "" {
			return fmt.Errorf("state.key must not be empty")
		}
		s.Config.State.Key = value
	case "state.redis_addr":
		s.Config.State.RedisAddr = value
	case "state.redis_prefix":
		s.Config.State.RedisPrefix = value
	case "log.level":
		switch value {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("log.level must be one of debug, info, warn, error")
		}
		s.Config.Log.Level = value
	default:
		return fmt.Errorf("unknown config key: %s\nValid keys: %s", key, strings.Join(ConfigKeys, ", "))
	}
	return s.SaveConfig()
}

// Path resolves a path within TAGTREE_HOME.
func (s *Store) Path(parts ...string) string {
	all := append([]string{s.Home}, parts...)
	return filepath.Join(all...)
}

// StatePath is the file backing the visibility state when the file backend
// is in use.
func (s *Store) StatePath() string {
	return s.Path("state.json")
}

// VaultPath returns the vault to work on: override when set, otherwise the
// configured vault.
func (s *Store) VaultPath(override string) (string, error) {
	p := override
	if p == "" {
		p = s.Config.Vault.Path
	}
	if p == "" {
		return "", fmt.Errorf("no vault configured (use --vault or 'tagtree config set vault.path <dir>')")
	}
	return filepath.Abs(p)
}

// StructurePath returns the location of the tag structure document for the
// given vault root.
func (s *Store) StructurePath(vaultRoot string) string {
	name := s.Config.Vault.StructureFile
	if name == "" {
		name = DefaultStructureFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(vaultRoot, name)
}

// CheckHealth verifies TAGTREE_HOME and config integrity.
func CheckHealth(home string) []Issue {
	var issues []Issue

	info, err := os.Stat(home)
	if err != nil {
		return append(issues, Issue{"error", fmt.Sprintf("missing TAGTREE_HOME: %s", home)})
	}
	if !info.IsDir() {
		return append(issues, Issue{"error", fmt.Sprintf("expected directory but found file: %s", home)})
	}

	cfgPath := filepath.Join(home, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return append(issues, Issue{"error", fmt.Sprintf("cannot read config.yaml: %v", err)})
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return append(issues, Issue{"error", fmt.Sprintf("config.yaml is not valid YAML: %v", err)})
	}

	if cfg.Vault.Path == "" {
		issues = append(issues, Issue{"warning", "no vault configured"})
	} else if fi, err := os.Stat(cfg.Vault.Path); err != nil || !fi.IsDir() {
		issues = append(issues, Issue{"error", fmt.Sprintf("vault directory not found: %s", cfg.Vault.Path)})
	}
	if !tagtree.ValidPruneMode(cfg.Tree.PruneOrphans) {
		issues = append(issues, Issue{"error", fmt.Sprintf("unknown tree.prune_orphans: %q", cfg.Tree.PruneOrphans)})
	}
	if cfg.State.Backend != BackendFile && cfg.State.Backend != BackendRedis {
		issues = append(issues, Issue{"error", fmt.Sprintf("unknown state.backend: %q", cfg.State.Backend)})
	}
	return issues
}

// CheckStructure reports problems with the persisted tag structure of a vault.
func (s *Store) CheckStructure(vaultRoot string) []Issue {
	var issues []Issue
	path := s.StructurePath(vaultRoot)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return append(issues, Issue{"warning", fmt.Sprintf("tag structure not created yet: %s", path)})
	}
	if err != nil {
		return append(issues, Issue{"error", fmt.Sprintf("cannot read tag structure: %v", err)})
	}
	tree, err := tagtree.Decode(data)
	if err != nil {
		return append(issues, Issue{"error", fmt.Sprintf("tag structure is not valid JSON: %v", err)})
	}

	for _, name := range tree.Duplicates() {
		issues = append(issues, Issue{"warning", fmt.Sprintf("tag %q appears more than once in the structure", name)})
	}
	return issues
}

// FixIssues attempts to repair simple issues in TAGTREE_HOME.
func FixIssues(home string) []string {
	var fixed []string

	if _, err := os.Stat(home); err != nil {
		if err := os.MkdirAll(home, 0755); err == nil {
			fixed = append(fixed, fmt.Sprintf("recreated missing directory: %s", home))
		}
	}

	cfgPath := filepath.Join(home, "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		if writeConfig(home, DefaultConfig()) == nil {
			fixed = append(fixed, "recreated missing config.yaml with defaults")
		}
	}

	return fixed
}
