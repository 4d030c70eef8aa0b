// Package vectorstore provides the nearest-neighbor store used by the
// semantic router cache and the relevance retrievers. Stores hold
// text+metadata keyed by id, embed documents through an injected embedder,
// and rank query results by cosine distance.
package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrEmptyID indicates an entry without an id.
	ErrEmptyID = errors.New("entry id cannot be empty")

	// ErrClosed indicates an operation on a closed store.
	ErrClosed = errors.New("vector store is closed")
)

// Entry is a document to upsert. Ids are unique within a store; upserting an
// existing id overwrites, never duplicates.
type Entry struct {
	ID       string
	Document string
	Metadata map[string]string
}

// Match is a ranked result. Distance is cosine distance in [0, 2]; exact-id
// fetches report 0.
type Match struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}

// Store is the nearest-neighbor contract. Implementations embed documents at
// upsert time and the search text at query time.
type Store interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, text string, k int) ([]Match, error)
	Get(ctx context.Context, ids []string) ([]Match, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
