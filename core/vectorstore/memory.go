package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/WonderMr/agents/core/embedder"
)

type memoryRecord struct {
	entry     Entry
	embedding []float32
	magnitude float64
}

// Memory is an in-process Store. Suitable for tests and single-process
// deployments where the index can be rebuilt from disk at startup.
type Memory struct {
	mu       sync.RWMutex
	records  map[string]memoryRecord
	embedder embedder.Embedder
	closed   bool
}

// NewMemory creates an in-memory store backed by the given embedder.
func NewMemory(emb embedder.Embedder) *Memory {
	return &Memory{
		records:  make(map[string]memoryRecord),
		embedder: emb,
	}
}

func (m *Memory) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		if entry.ID == "" {
			return ErrEmptyID
		}
		texts[i] = entry.Document
	}

	vecs, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for i, entry := range entries {
		m.records[entry.ID] = memoryRecord{
			entry:     entry,
			embedding: vecs[i],
			magnitude: Magnitude(vecs[i]),
		}
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		k = 1
	}

	queryVec, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	queryMag := Magnitude(queryVec)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	matches := make([]Match, 0, len(m.records))
	for _, rec := range m.records {
		matches = append(matches, Match{
			ID:       rec.entry.ID,
			Document: rec.entry.Document,
			Metadata: rec.entry.Metadata,
			Distance: CosineDistance(queryVec, rec.embedding, queryMag, rec.magnitude),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *Memory) Get(ctx context.Context, ids []string) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	matches := make([]Match, 0, len(ids))
	for _, id := range ids {
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		matches = append(matches, Match{
			ID:       rec.entry.ID,
			Document: rec.entry.Document,
			Metadata: rec.entry.Metadata,
			Distance: 0,
		})
	}
	return matches, nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return len(m.records), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.records = nil
	return nil
}
