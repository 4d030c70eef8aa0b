package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantDesc string
		wantBody string
	}{
		{
			name:     "typed frontmatter",
			content:  "---\ndescription: SQL safety rules\npreferred_skills:\n  - sql-guard\n---\nUse prepared statements.",
			wantDesc: "SQL safety rules",
			wantBody: "Use prepared statements.",
		},
		{
			name:     "no frontmatter passes through",
			content:  "Plain body only.",
			wantDesc: "",
			wantBody: "Plain body only.",
		},
		{
			name:     "unterminated delimiter treated as body",
			content:  "---\ndescription: dangling",
			wantDesc: "",
			wantBody: "---\ndescription: dangling",
		},
		{
			name:     "unknown fields ignored",
			content:  "---\ndescription: ok\nsome_future_field: 42\n---\nBody.",
			wantDesc: "ok",
			wantBody: "Body.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, body, err := ParseFrontmatter(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDesc, meta.Description)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestParseFrontmatterPreferredSkills(t *testing.T) {
	content := "---\ndescription: coding agent\npreferred_skills:\n  - clean-code\n  - tdd\n---\nBody."
	meta, _, err := ParseFrontmatter(content)
	require.NoError(t, err)
	assert.Equal(t, []string{"clean-code", "tdd"}, meta.PreferredSkills)
}

func TestLoadDirSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "good.mdc"),
		[]byte("---\ndescription: fine\n---\ncontent"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "ignored.txt"),
		[]byte("not a document"), 0o644))

	docs, err := LoadDir(dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "good.mdc", docs[0].ID)
	assert.Equal(t, "fine", docs[0].Meta.Description)
	assert.Equal(t, "content", docs[0].Body)
}

func TestSearchTextCombinesDescriptionAndBody(t *testing.T) {
	doc := Document{
		Body: "body text",
		Meta: Frontmatter{Description: "short description"},
	}
	assert.Equal(t, "short description\n\nbody text", doc.SearchText())

	doc.Meta.Description = ""
	assert.Equal(t, "body text", doc.SearchText())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.mdc"))
	assert.ErrorIs(t, err, ErrNotFound)
}
