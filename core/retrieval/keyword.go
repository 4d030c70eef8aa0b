package retrieval

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/WonderMr/agents/core/document"
	"github.com/blevesearch/bleve/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultKeywordCacheSize bounds the document cache behind the keyword
// index.
const DefaultKeywordCacheSize = 4096

// keywordDoc is the shape indexed in bleve.
type keywordDoc struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Body        string `json:"body"`
}

// KeywordMatch is one full-text search hit.
type KeywordMatch struct {
	ID          string
	Description string
	Body        string
	Score       float64
}

// KeywordIndex is a full-text side index over a document library, used by
// the search CLI verb for exact-term lookups that vector similarity handles
// poorly. Documents are cached in a bounded LRU for retrieval after search.
type KeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	docs   *lru.Cache[string, keywordDoc]
	logger *slog.Logger
}

// NewKeywordIndex creates an in-memory keyword index. cacheSize <= 0 uses
// the default.
func NewKeywordIndex(cacheSize int, logger *slog.Logger) (*KeywordIndex, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultKeywordCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create keyword index: %w", err)
	}
	docs, err := lru.New[string, keywordDoc](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create keyword doc cache: %w", err)
	}

	return &KeywordIndex{index: index, docs: docs, logger: logger}, nil
}

// IndexDocuments adds or replaces documents in the index.
func (k *KeywordIndex) IndexDocuments(docs []document.Document) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, doc := range docs {
		entry := keywordDoc{
			ID:          doc.ID,
			Description: doc.Description(),
			Body:        doc.Body,
		}
		if err := k.index.Index(doc.ID, entry); err != nil {
			return fmt.Errorf("keyword index %s: %w", doc.ID, err)
		}
		k.docs.Add(doc.ID, entry)
	}
	return nil
}

// Search runs a match query and returns up to limit hits, best-first.
func (k *KeywordIndex) Search(query string, limit int) ([]KeywordMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), limit, 0, false)
	res, err := k.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	matches := make([]KeywordMatch, 0, len(res.Hits))
	for _, hit := range res.Hits {
		match := KeywordMatch{ID: hit.ID, Score: hit.Score}
		if doc, ok := k.docs.Get(hit.ID); ok {
			match.Description = doc.Description
			match.Body = doc.Body
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Close releases the index.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.index.Close()
}
