package resolver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	r, err := New(root, nil)
	require.NoError(t, err)
	return r, root
}

func TestResolvePathTiers(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, ".cursor/rules/style.mdc", "style body")

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "explicit cursor prefix maps to root",
			ref:  "@.cursor/implants/security.mdc",
			want: filepath.Join(root, ".cursor", "implants", "security.mdc"),
		},
		{
			name: "agents prefix lives under cursor dir",
			ref:  "@agents/common/core-protocol.mdc",
			want: filepath.Join(root, ".cursor", "agents", "common", "core-protocol.mdc"),
		},
		{
			name: "bare ref prefers cursor dir when present there",
			ref:  "@rules/style.mdc",
			want: filepath.Join(root, ".cursor", "rules", "style.mdc"),
		},
		{
			name: "bare ref falls back to root",
			ref:  "@docs/readme.mdc",
			want: filepath.Join(root, "docs", "readme.mdc"),
		},
		{
			name: "plain relative path maps to root",
			ref:  "notes/today.mdc",
			want: filepath.Join(root, "notes", "today.mdc"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolvePath(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePathTraversalBlocked(t *testing.T) {
	r, _ := newTestResolver(t)

	for _, ref := range []string{
		"@../../etc/passwd.mdc",
		"../outside.mdc",
		"@.cursor/../../escape.mdc",
	} {
		_, err := r.ResolvePath(ref)
		require.Error(t, err, ref)
		var secErr *SecurityError
		assert.ErrorAs(t, err, &secErr)
	}
}

func TestExpandInlinesReferences(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, ".cursor/agents/common/core-protocol.mdc",
		"---\ndescription: shared protocol\n---\nAlways answer honestly.")

	out := r.Expand("Apply Core Protocol: @agents/common/core-protocol.mdc\nThen proceed.")

	assert.Equal(t, "Apply Core Protocol: Always answer honestly.\nThen proceed.", out)
}

func TestExpandNestedReferences(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, ".cursor/rules/outer.mdc", "outer start\n@.cursor/rules/inner.mdc\nouter end")
	writeFile(t, root, ".cursor/rules/inner.mdc", "inner body")

	out := r.Expand("@.cursor/rules/outer.mdc")
	assert.Equal(t, "outer start\ninner body\nouter end", out)
}

func TestExpandMissingFileMarker(t *testing.T) {
	r, _ := newTestResolver(t)

	out := r.Expand("see @.cursor/rules/gone.mdc here")
	assert.Contains(t, out, "[MISSING FILE: ")
	assert.Contains(t, out, "gone.mdc]")
	assert.True(t, strings.HasPrefix(out, "see "))
	assert.True(t, strings.HasSuffix(out, " here"))
}

func TestExpandSelfReferenceTerminates(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, ".cursor/rules/loop.mdc", "before @.cursor/rules/loop.mdc after")

	out := r.Expand("@.cursor/rules/loop.mdc")
	assert.Equal(t, "before [CIRCULAR REFERENCE: @.cursor/rules/loop.mdc] after", out)
}

func TestExpandMutualCycleTerminates(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, ".cursor/rules/a.mdc", "A(@.cursor/rules/b.mdc)")
	writeFile(t, root, ".cursor/rules/b.mdc", "B(@.cursor/rules/a.mdc)")

	out := r.Expand("@.cursor/rules/a.mdc")
	assert.Equal(t, "A(B([CIRCULAR REFERENCE: @.cursor/rules/a.mdc]))", out)
}

func TestExpandSiblingsMayShareAncestor(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, ".cursor/rules/shared.mdc", "S")
	writeFile(t, root, ".cursor/rules/left.mdc", "L[@.cursor/rules/shared.mdc]")
	writeFile(t, root, ".cursor/rules/right.mdc", "R[@.cursor/rules/shared.mdc]")

	out := r.Expand("@.cursor/rules/left.mdc @.cursor/rules/right.mdc")
	assert.Equal(t, "L[S] R[S]", out)
}

func TestExpandSecurityBlockMarker(t *testing.T) {
	r, _ := newTestResolver(t)

	out := r.Expand("load @../../etc/passwd.mdc now")
	assert.Contains(t, out, "[SECURITY BLOCK: ")
	assert.NotContains(t, out, "passwd.mdc\n")
}

func TestLoadAgentPrompt(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, ".cursor/agents/developer/system_prompt.mdc",
		"---\ndescription: developer agent\npreferred_skills:\n  - tdd.mdc\n---\nYou are the developer.\n@agents/common/core-protocol.mdc")
	writeFile(t, root, ".cursor/agents/common/core-protocol.mdc", "Core rules.")

	prompt, err := r.LoadAgentPrompt("developer")
	require.NoError(t, err)
	assert.Equal(t, "You are the developer.\nCore rules.", prompt)
}

func TestLoadAgentPromptMissing(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.LoadAgentPrompt("ghost")
	require.Error(t, err)
	var notFound *AgentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Agent)
}

func TestLoadAgentPromptTraversalName(t *testing.T) {
	r, _ := newTestResolver(t)

	_, err := r.LoadAgentPrompt("../../outside")
	require.Error(t, err)
}

func TestAgentMetadata(t *testing.T) {
	r, root := newTestResolver(t)
	writeFile(t, root, ".cursor/agents/developer/system_prompt.mdc",
		"---\ndescription: developer agent\npreferred_skills:\n  - tdd.mdc\n  - refactoring.mdc\n---\nbody")

	meta := r.AgentMetadata("developer")
	assert.Equal(t, "developer agent", meta.Description)
	assert.Equal(t, []string{"tdd.mdc", "refactoring.mdc"}, meta.PreferredSkills)

	assert.Zero(t, r.AgentMetadata("ghost"))
}
