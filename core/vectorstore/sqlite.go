package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/WonderMr/agents/core/embedder"
	_ "modernc.org/sqlite"
)

var collectionNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQLite is a durable Store. Each collection maps to its own table;
// embeddings are serialized as JSON alongside the document so the index
// survives restarts without re-embedding.
type SQLite struct {
	mu       sync.RWMutex
	db       *sql.DB
	table    string
	embedder embedder.Embedder
	closed   bool
}

// NewSQLite opens (creating if needed) the database at path and ensures the
// collection table exists. Collection names are restricted to identifier
// characters because they are interpolated into DDL.
func NewSQLite(path, collection string, emb embedder.Embedder) (*SQLite, error) {
	if !collectionNameRe.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id        TEXT PRIMARY KEY,
			document  TEXT NOT NULL,
			metadata  TEXT,
			embedding TEXT NOT NULL,
			magnitude REAL NOT NULL
		)`, collection)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create collection %s: %w", collection, err)
	}

	return &SQLite{db: db, table: collection, embedder: emb}, nil
}

func (s *SQLite) Upsert(ctx context.Context, entries []Entry) error {
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

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document, metadata, embedding, magnitude)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			magnitude = excluded.magnitude`, s.table)

	for i, entry := range entries {
		metaJSON, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", entry.ID, err)
		}
		embJSON, err := json.Marshal(vecs[i])
		if err != nil {
			return fmt.Errorf("marshal embedding for %s: %w", entry.ID, err)
		}
		if _, err := tx.ExecContext(ctx, stmt,
			entry.ID, entry.Document, string(metaJSON), string(embJSON), Magnitude(vecs[i]),
		); err != nil {
			return fmt.Errorf("upsert %s: %w", entry.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) Query(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		k = 1
	}

	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	queryMag := Magnitude(queryVec)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT id, document, metadata, embedding, magnitude FROM %s", s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			match     Match
			metaJSON  sql.NullString
			embJSON   string
			magnitude float64
		)
		if err := rows.Scan(&match.ID, &match.Document, &metaJSON, &embJSON, &magnitude); err != nil {
			return nil, err
		}

		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			continue
		}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &match.Metadata); err != nil {
				match.Metadata = nil
			}
		}
		match.Distance = CosineDistance(queryVec, vec, queryMag, magnitude)
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
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

func (s *SQLite) Get(ctx context.Context, ids []string) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	stmt := fmt.Sprintf("SELECT document, metadata FROM %s WHERE id = ?", s.table)

	matches := make([]Match, 0, len(ids))
	for _, id := range ids {
		var (
			document string
			metaJSON sql.NullString
		)
		err := s.db.QueryRowContext(ctx, stmt, id).Scan(&document, &metaJSON)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}

		match := Match{ID: id, Document: document, Distance: 0}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &match.Metadata); err != nil {
				match.Metadata = nil
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count)
	return count, err
}

func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
