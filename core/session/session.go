// Package session caches fully composed prompts for the duration of a
// process, keyed by agent and query, so repeated identical requests skip
// recomposition. The cache is bounded; old sessions fall out under pressure.
package session

import (
	"fmt"
	"hash/fnv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity bounds the number of cached compositions.
const DefaultCapacity = 512

// Cache is a bounded LRU of composed prompts.
type Cache struct {
	entries *lru.Cache[string, string]
}

// New creates a session cache. capacity <= 0 uses DefaultCapacity.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Key derives the cache key for an agent and query pair. The query is
// hashed so arbitrarily long inputs produce fixed-size keys.
func Key(agent, query string) string {
	h := fnv.New64a()
	h.Write([]byte(query))
	return fmt.Sprintf("%s:%x", agent, h.Sum64())
}

// Get returns the cached prompt for an agent and query, if present.
func (c *Cache) Get(agent, query string) (string, bool) {
	return c.entries.Get(Key(agent, query))
}

// Put stores a composed prompt.
func (c *Cache) Put(agent, query, prompt string) {
	c.entries.Add(Key(agent, query), prompt)
}

// Len returns the number of cached compositions.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Clear drops every cached composition.
func (c *Cache) Clear() {
	c.entries.Purge()
}
