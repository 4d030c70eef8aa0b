// Package retrieval indexes directories of annotated documents into a
// vector store and retrieves the most relevant entries for a query. The same
// retriever type serves both the skills and implants libraries; the two
// instances differ only in directory, collection name and distance
// threshold.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/WonderMr/agents/core/document"
	"github.com/WonderMr/agents/core/vectorstore"
)

const (
	// SkillsThreshold is the maximum cosine distance for a skill to be
	// considered relevant.
	SkillsThreshold = 0.45

	// ImplantsThreshold is the maximum cosine distance for an implant.
	// Implants are broader guidance, so the gate is looser.
	ImplantsThreshold = 0.73

	// DefaultSkillsN and DefaultImplantsN are the default candidate counts
	// fetched before threshold filtering.
	DefaultSkillsN   = 2
	DefaultImplantsN = 3

	// historyTailBytes bounds how much history feeds the implant search
	// string.
	historyTailBytes = 300
)

// Result is one retrieved document: the clean body (frontmatter stripped),
// its metadata, and the measured cosine distance. Exact-id fetches report
// distance 0.
type Result struct {
	ID       string
	Content  string
	Metadata map[string]string
	Distance float64
}

// Options tunes a single retrieve call.
type Options struct {
	// N overrides the candidate count. Zero uses the retriever default.
	N int

	// PreferredIDs bypasses similarity search with an exact-id fetch.
	// Ids are normalized to the canonical extension. If nothing can be
	// fetched, retrieval falls through to similarity search.
	PreferredIDs []string

	// Role and HistoryTail enrich the search string for libraries whose
	// relevance depends on who is asking and what came before.
	Role        string
	HistoryTail string
}

// Config configures a Retriever.
type Config struct {
	Dir        string
	Collection string
	Threshold  float64
	DefaultN   int
	Store      vectorstore.Store
	Keyword    *KeywordIndex
	Logger     *slog.Logger
}

// Retriever indexes and searches one document library.
type Retriever struct {
	dir        string
	collection string
	threshold  float64
	defaultN   int
	store      vectorstore.Store
	keyword    *KeywordIndex
	logger     *slog.Logger

	mu    sync.Mutex
	dirty bool
}

// New creates a retriever from explicit configuration.
func New(cfg Config) *Retriever {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultN <= 0 {
		cfg.DefaultN = DefaultSkillsN
	}
	return &Retriever{
		dir:        cfg.Dir,
		collection: cfg.Collection,
		threshold:  cfg.Threshold,
		defaultN:   cfg.DefaultN,
		store:      cfg.Store,
		keyword:    cfg.Keyword,
		logger:     cfg.Logger.With("collection", cfg.Collection),
	}
}

// NewSkills creates the skills-library retriever.
func NewSkills(dir string, store vectorstore.Store, keyword *KeywordIndex, logger *slog.Logger) *Retriever {
	return New(Config{
		Dir:        dir,
		Collection: "skills_store",
		Threshold:  SkillsThreshold,
		DefaultN:   DefaultSkillsN,
		Store:      store,
		Keyword:    keyword,
		Logger:     logger,
	})
}

// NewImplants creates the implants-library retriever.
func NewImplants(dir string, store vectorstore.Store, keyword *KeywordIndex, logger *slog.Logger) *Retriever {
	return New(Config{
		Dir:        dir,
		Collection: "implants_store",
		Threshold:  ImplantsThreshold,
		DefaultN:   DefaultImplantsN,
		Store:      store,
		Keyword:    keyword,
		Logger:     logger,
	})
}

// Collection returns the collection name.
func (r *Retriever) Collection() string {
	return r.collection
}

// Keyword returns the side keyword index, or nil when none is attached.
func (r *Retriever) Keyword() *KeywordIndex {
	return r.keyword
}

// MarkDirty flags the collection for re-index on the next retrieve. Called
// by the directory watcher when documents change on disk.
func (r *Retriever) MarkDirty() {
	r.mu.Lock()
	r.dirty = true
	r.mu.Unlock()
}

// EnsureIndexed indexes the directory if the collection is empty or was
// marked dirty. The empty check is the only (re)index gate at startup.
func (r *Retriever) EnsureIndexed(ctx context.Context) error {
	r.mu.Lock()
	dirty := r.dirty
	r.dirty = false
	r.mu.Unlock()

	if dirty {
		return r.Index(ctx)
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count %s: %w", r.collection, err)
	}
	if count == 0 {
		r.logger.Info("collection empty, indexing", "dir", r.dir)
		return r.Index(ctx)
	}
	return nil
}

// Index reads every annotated document in the directory and upserts it.
// Ids are filenames, so re-indexing overwrites rather than duplicates.
func (r *Retriever) Index(ctx context.Context) error {
	docs, err := document.LoadDir(r.dir, r.logger)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		r.logger.Warn("no documents found", "dir", r.dir)
		return nil
	}

	entries := make([]vectorstore.Entry, len(docs))
	for i, doc := range docs {
		entries[i] = vectorstore.Entry{
			ID:       doc.ID,
			Document: doc.SearchText(),
			Metadata: map[string]string{
				"filename":    doc.ID,
				"description": doc.Description(),
				"path":        doc.Path,
				"body":        doc.Body,
			},
		}
	}

	if err := r.store.Upsert(ctx, entries); err != nil {
		return fmt.Errorf("index %s: %w", r.collection, err)
	}

	if r.keyword != nil {
		if err := r.keyword.IndexDocuments(docs); err != nil {
			r.logger.Warn("keyword index update failed", "error", err)
		}
	}

	r.logger.Info("indexed documents", "count", len(docs))
	return nil
}

// Retrieve returns the documents relevant to query, ordered best-first and
// filtered to those within the distance threshold. The sequence is
// variable-length and may be empty: irrelevant context is worse than no
// context. Retrieval against an empty collection returns nil immediately.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]Result, error) {
	if err := r.EnsureIndexed(ctx); err != nil {
		r.logger.Error("ensure indexed failed", "error", err)
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", r.collection, err)
	}
	if count == 0 {
		return nil, nil
	}

	if len(opts.PreferredIDs) > 0 {
		if results := r.fetchPreferred(ctx, opts.PreferredIDs); len(results) > 0 {
			return results, nil
		}
		// Nothing fetched: fall through to similarity search.
	}

	n := opts.N
	if n <= 0 {
		n = r.defaultN
	}

	matches, err := r.store.Query(ctx, r.buildSearch(query, opts), n)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.collection, err)
	}

	results := make([]Result, 0, len(matches))
	for _, match := range matches {
		if match.Distance >= r.threshold {
			continue
		}
		results = append(results, toResult(match))
	}
	return results, nil
}

// fetchPreferred loads explicitly requested documents in request order.
// Errors degrade to nil so the caller can fall through to similarity.
func (r *Retriever) fetchPreferred(ctx context.Context, ids []string) []Result {
	targets := make([]string, len(ids))
	for i, id := range ids {
		targets[i] = NormalizeID(id)
	}

	matches, err := r.store.Get(ctx, targets)
	if err != nil {
		r.logger.Warn("preferred fetch failed, falling back to search",
			"ids", targets, "error", err)
		return nil
	}

	results := make([]Result, 0, len(matches))
	for _, match := range matches {
		results = append(results, toResult(match))
	}
	if len(results) > 0 {
		r.logger.Info("loaded preferred documents", "count", len(results))
	}
	return results
}

// buildSearch composes the search string. Plain queries search as-is; when
// role or history context is supplied the parts are labelled so they weigh
// into relevance without swamping the query.
func (r *Retriever) buildSearch(query string, opts Options) string {
	if opts.Role == "" && opts.HistoryTail == "" {
		return query
	}

	parts := []string{"Query: " + query}
	if opts.Role != "" {
		parts = append(parts, "Role: "+opts.Role)
	}
	if opts.HistoryTail != "" {
		parts = append(parts, "Context: "+tailBytes(opts.HistoryTail, historyTailBytes))
	}
	return strings.Join(parts, "\n")
}

// tailBytes returns at most the last n bytes of s, backed off to a rune
// boundary so multi-byte characters are never split.
func tailBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := len(s) - n
	for cut < len(s) && !utf8.RuneStart(s[cut]) {
		cut++
	}
	return s[cut:]
}

// NormalizeID appends the canonical document extension when absent.
func NormalizeID(id string) string {
	if strings.HasSuffix(id, document.Extension) {
		return id
	}
	return id + document.Extension
}

func toResult(match vectorstore.Match) Result {
	content := match.Document
	if body, ok := match.Metadata["body"]; ok && body != "" {
		content = body
	}
	return Result{
		ID:       match.ID,
		Content:  content,
		Metadata: match.Metadata,
		Distance: match.Distance,
	}
}
