package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/WonderMr/agents/core/embedder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	emb := embedder.NewDeterministic(64)
	ctx := context.Background()

	store, err := NewSQLite(path, "router_cache", emb)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, []Entry{
		{ID: "q1", Document: "deploy with kubernetes", Metadata: map[string]string{"target_agent": "devops_engineer"}},
	}))

	matches, err := store.Query(ctx, "deploy with kubernetes", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "q1", matches[0].ID)
	assert.Equal(t, "devops_engineer", matches[0].Metadata["target_agent"])
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)

	require.NoError(t, store.Close())

	// Reopen: the index must survive restarts.
	store, err = NewSQLite(path, "router_cache", emb)
	require.NoError(t, err)
	defer store.Close()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteUpsertOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	store, err := NewSQLite(path, "skills_store", embedder.NewDeterministic(64))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Entry{{ID: "s.mdc", Document: "old body"}}))
	require.NoError(t, store.Upsert(ctx, []Entry{{ID: "s.mdc", Document: "new body"}}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	matches, err := store.Get(ctx, []string{"s.mdc"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new body", matches[0].Document)
}

func TestSQLiteGetMissingIDsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	store, err := NewSQLite(path, "implants_store", embedder.NewDeterministic(64))
	require.NoError(t, err)
	defer store.Close()

	matches, err := store.Get(context.Background(), []string{"nope.mdc"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSQLiteRejectsBadCollectionName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	_, err := NewSQLite(path, "bad-name; DROP TABLE", embedder.NewDeterministic(64))
	assert.Error(t, err)
}
