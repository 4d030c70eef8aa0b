package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WonderMr/agents/core/retrieval"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "sqlite", cfg.Store.Provider)
	assert.Equal(t, retrieval.SkillsThreshold, cfg.Retrieval.SkillsThreshold)
	assert.Equal(t, retrieval.ImplantsThreshold, cfg.Retrieval.ImplantsThreshold)
	assert.Equal(t, "openai", cfg.Classifier.Provider)
	assert.Equal(t, 30*time.Second, cfg.Classifier.Timeout)
}

func TestManagerNoFileUsesDefaults(t *testing.T) {
	m := NewManager("")
	require.NoError(t, m.Load())

	assert.Equal(t, DefaultConfig().Store, m.Get().Store)
}

func TestManagerMissingFileIsNotAnError(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, m.Load())
}

func TestManagerLoadsFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
root: /srv/agents
store:
  provider: memory
retrieval:
  skills_threshold: 0.3
classifier:
  provider: anthropic
  model: claude-sonnet-4-20250514
`), 0o644))

	m := NewManager(path)
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "/srv/agents", cfg.Root)
	assert.Equal(t, "memory", cfg.Store.Provider)
	assert.Equal(t, 0.3, cfg.Retrieval.SkillsThreshold)
	assert.Equal(t, "anthropic", cfg.Classifier.Provider)

	// untouched fields keep their defaults
	assert.Equal(t, retrieval.ImplantsThreshold, cfg.Retrieval.ImplantsThreshold)
	assert.Equal(t, DefaultConfig().Session.Capacity, cfg.Session.Capacity)
}

func TestManagerMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("store: [not a map"), 0o644))

	m := NewManager(path)
	require.Error(t, m.Load())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("AGENTS_ROOT", "/opt/repo")
	t.Setenv("AGENTS_STORE_PROVIDER", "memory")
	t.Setenv("AGENTS_CLASSIFIER_PROVIDER", "anthropic")
	t.Setenv("AGENTS_CLASSIFIER_TIMEOUT", "10s")
	t.Setenv("AGENTS_SESSION_CAPACITY", "64")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	m := NewManager("")
	require.NoError(t, m.Load())

	cfg := m.Get()
	assert.Equal(t, "/opt/repo", cfg.Root)
	assert.Equal(t, "memory", cfg.Store.Provider)
	assert.Equal(t, "anthropic", cfg.Classifier.Provider)
	assert.Equal(t, 10*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, 64, cfg.Session.Capacity)
	assert.Equal(t, "test-key", cfg.Classifier.APIKey)
}

func TestDerivedPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = "/srv/repo"

	assert.Equal(t, "/srv/repo/.cursor/agents", cfg.AgentsDir())
	assert.Equal(t, "/srv/repo/.cursor/skills", cfg.SkillsDir())
	assert.Equal(t, "/srv/repo/.cursor/implants", cfg.ImplantsDir())
	assert.Equal(t, "/srv/repo/.cursor/agents.db", cfg.StorePath())

	cfg.Store.Path = "/var/db/agents.db"
	assert.Equal(t, "/var/db/agents.db", cfg.StorePath())
}

func TestOnChangeNotified(t *testing.T) {
	m := NewManager("")

	var got *Config
	m.OnChange(func(c *Config) { got = c })

	require.NoError(t, m.Load())
	require.NotNil(t, got)
	assert.Same(t, m.Get(), got)
}
