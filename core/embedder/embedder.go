// Package embedder defines the embedding contract used by the vector stores
// and provides the available implementations.
package embedder

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEmptyText indicates an empty string was passed for embedding.
	ErrEmptyText = errors.New("text to embed cannot be empty")

	// ErrDimensionMismatch indicates a vector of unexpected dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder maps text deterministically onto fixed-dimension vectors that are
// comparable under cosine distance.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Config holds embedder construction options.
type Config struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	BaseURL   string        `yaml:"base_url"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default embedder configuration.
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		Timeout:   30 * time.Second,
	}
}

// New constructs an embedder from configuration. Unknown providers fall back
// to the deterministic local embedder so the system stays usable offline.
func New(cfg Config) Embedder {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey != "" {
			return NewOpenAI(cfg)
		}
		return NewDeterministic(cfg.Dimension)
	default:
		return NewDeterministic(cfg.Dimension)
	}
}
