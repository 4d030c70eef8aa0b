// Package language detects the natural language of request text. Detection
// results are cached because the same query text is commonly seen several
// times per request cycle (routing, retrieval, composition).
package language

import (
	"log/slog"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/dgraph-io/ristretto"
)

// DefaultLanguage is returned when detection fails or is unreliable.
const DefaultLanguage = "English"

const (
	defaultNumCounters = 1e5
	defaultMaxCost     = 1 << 20 // 1MB of cached names
	defaultBufferItems = 64
	defaultTTL         = 10 * time.Minute

	// minDetectLen guards against unreliable detection on tiny inputs.
	minDetectLen = 3
)

// Config configures the detector cache.
type Config struct {
	NumCounters int64
	MaxCost     int64
	TTL         time.Duration
	Logger      *slog.Logger
}

// Detector maps text to a human-readable language name. Constructed
// explicitly and injected; there is no package-level instance.
type Detector struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Detector. The cache is cost-bounded; detection still works
// if cache construction fails, just without memoization.
func New(cfg Config) *Detector {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = defaultNumCounters
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = defaultMaxCost
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		cfg.Logger.Warn("language cache unavailable", "error", err)
		cache = nil
	}

	return &Detector{cache: cache, ttl: cfg.TTL, logger: cfg.Logger}
}

// Detect returns the language name for text, or DefaultLanguage for empty,
// too-short, or unreliably detected input.
func (d *Detector) Detect(text string) string {
	cleaned := strings.TrimSpace(text)
	if len(cleaned) < minDetectLen {
		return DefaultLanguage
	}

	if d.cache != nil {
		if cached, found := d.cache.Get(cleaned); found {
			if name, ok := cached.(string); ok {
				return name
			}
		}
	}

	name := d.detect(cleaned)

	if d.cache != nil {
		d.cache.SetWithTTL(cleaned, name, int64(len(cleaned)+len(name)), d.ttl)
	}
	return name
}

func (d *Detector) detect(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		d.logger.Debug("language detection unreliable, using default",
			"confidence", info.Confidence)
		return DefaultLanguage
	}

	name, ok := whatlanggo.Langs[info.Lang]
	if !ok {
		return DefaultLanguage
	}
	return name
}

// Close releases the cache.
func (d *Detector) Close() {
	if d.cache != nil {
		d.cache.Close()
	}
}
