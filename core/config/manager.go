// Package config loads and holds the runtime configuration: repository
// layout, store backend, embedder and classifier providers, and retrieval
// thresholds. Defaults always apply; a YAML file and environment variables
// override them in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/WonderMr/agents/core/classifier"
	"github.com/WonderMr/agents/core/embedder"
	"github.com/WonderMr/agents/core/retrieval"
	"github.com/WonderMr/agents/core/router"
	"github.com/WonderMr/agents/core/session"
)

// FileName is the default configuration file, looked up under the root.
const FileName = "agents.yaml"

// Config is the full runtime configuration tree.
type Config struct {
	// Root is the repository root holding the .cursor document tree.
	Root string `yaml:"root"`

	Store      StoreConfig       `yaml:"store"`
	Embedder   embedder.Config   `yaml:"embedder"`
	Classifier classifier.Config `yaml:"classifier"`
	Router     router.Config     `yaml:"router"`
	Retrieval  RetrievalConfig   `yaml:"retrieval"`
	Session    SessionConfig     `yaml:"session"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	// Provider is "memory" or "sqlite".
	Provider string `yaml:"provider"`

	// Path is the sqlite database file, ignored for the memory provider.
	Path string `yaml:"path"`

	// Workers bounds concurrent store operations.
	Workers int `yaml:"workers"`
}

// RetrievalConfig tunes the skills and implants retrievers.
type RetrievalConfig struct {
	SkillsThreshold   float64       `yaml:"skills_threshold"`
	ImplantsThreshold float64       `yaml:"implants_threshold"`
	SkillsN           int           `yaml:"skills_n"`
	ImplantsN         int           `yaml:"implants_n"`
	WatchDebounce     time.Duration `yaml:"watch_debounce"`
	WatchExclude      []string      `yaml:"watch_exclude"`
}

// SessionConfig tunes the composed-prompt cache.
type SessionConfig struct {
	Capacity int `yaml:"capacity"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Root: ".",
		Store: StoreConfig{
			Provider: "sqlite",
			Path:     filepath.Join(".cursor", "agents.db"),
			Workers:  4,
		},
		Embedder:   embedder.DefaultConfig(),
		Classifier: classifier.DefaultConfig(),
		Router:     router.DefaultConfig(),
		Retrieval: RetrievalConfig{
			SkillsThreshold:   retrieval.SkillsThreshold,
			ImplantsThreshold: retrieval.ImplantsThreshold,
			SkillsN:           retrieval.DefaultSkillsN,
			ImplantsN:         retrieval.DefaultImplantsN,
			WatchDebounce:     200 * time.Millisecond,
		},
		Session: SessionConfig{
			Capacity: session.DefaultCapacity,
		},
	}
}

// CursorDir returns the .cursor directory under the root.
func (c *Config) CursorDir() string {
	return filepath.Join(c.Root, ".cursor")
}

// AgentsDir returns the agent profiles directory.
func (c *Config) AgentsDir() string {
	return filepath.Join(c.CursorDir(), "agents")
}

// SkillsDir returns the skills library directory.
func (c *Config) SkillsDir() string {
	return filepath.Join(c.CursorDir(), "skills")
}

// ImplantsDir returns the implants library directory.
func (c *Config) ImplantsDir() string {
	return filepath.Join(c.CursorDir(), "implants")
}

// StorePath returns the sqlite path resolved against the root.
func (c *Config) StorePath() string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.Root, c.Store.Path)
}

// Manager owns the active configuration and reloads it on demand. Get is
// safe from any goroutine; Load swaps the whole tree atomically.
type Manager struct {
	current   atomic.Pointer[Config]
	path      string
	watchers  []func(*Config)
	watcherMu sync.RWMutex
}

// NewManager creates a manager reading from the given config file path.
// An empty path means defaults plus environment only.
func NewManager(path string) *Manager {
	m := &Manager{path: path}
	m.current.Store(DefaultConfig())
	return m
}

// Get returns the active configuration. The returned tree is shared;
// callers must not mutate it.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Load rebuilds the configuration from defaults, file and environment,
// then publishes it and notifies watchers.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadFile(cfg); err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	applyEnvironment(cfg)

	m.current.Store(cfg)
	m.notifyWatchers(cfg)
	return nil
}

// Reload is an alias for Load.
func (m *Manager) Reload() error {
	return m.Load()
}

// OnChange registers a callback invoked after every successful Load.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) loadFile(cfg *Config) error {
	if m.path == "" {
		return nil
	}
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func applyEnvironment(cfg *Config) {
	if v := os.Getenv("AGENTS_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv("AGENTS_STORE_PROVIDER"); v != "" {
		cfg.Store.Provider = v
	}
	if v := os.Getenv("AGENTS_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("AGENTS_CLASSIFIER_PROVIDER"); v != "" {
		cfg.Classifier.Provider = v
	}
	if v := os.Getenv("AGENTS_CLASSIFIER_MODEL"); v != "" {
		cfg.Classifier.Model = v
	}
	if v := os.Getenv("AGENTS_CLASSIFIER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Classifier.Timeout = d
		}
	}
	if v := os.Getenv("AGENTS_EMBEDDER_PROVIDER"); v != "" {
		cfg.Embedder.Provider = v
	}
	if v := os.Getenv("AGENTS_SESSION_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.Capacity = n
		}
	}

	// provider API keys follow the SDK conventions
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.Classifier.Provider == "openai" && cfg.Classifier.APIKey == "" {
			cfg.Classifier.APIKey = v
		}
		if cfg.Embedder.APIKey == "" {
			cfg.Embedder.APIKey = v
		}
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		if cfg.Classifier.Provider == "anthropic" && cfg.Classifier.APIKey == "" {
			cfg.Classifier.APIKey = v
		}
	}
}
