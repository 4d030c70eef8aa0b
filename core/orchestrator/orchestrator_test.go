package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WonderMr/agents/core/classifier"
	"github.com/WonderMr/agents/core/embedder"
	"github.com/WonderMr/agents/core/reqcontext"
	"github.com/WonderMr/agents/core/resolver"
	"github.com/WonderMr/agents/core/retrieval"
	"github.com/WonderMr/agents/core/router"
	"github.com/WonderMr/agents/core/session"
	"github.com/WonderMr/agents/core/vectorstore"
)

type stubClassifier struct {
	decision classifier.Decision
	calls    int
}

func (s *stubClassifier) Classify(_ context.Context, _ classifier.Request) (classifier.Decision, error) {
	s.calls++
	return s.decision, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeDoc(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newTestOrchestrator builds a full pipeline over a temp repository with a
// developer agent, a universal agent, one preferred skill and one implant.
func newTestOrchestrator(t *testing.T, cls classifier.Classifier) (*Orchestrator, string) {
	t.Helper()
	root := t.TempDir()

	writeDoc(t, root, ".cursor/agents/developer/system_prompt.mdc",
		"---\ndescription: developer agent\npreferred_skills:\n  - tdd.mdc\n---\nYou are the developer.")
	writeDoc(t, root, ".cursor/agents/universal_agent/system_prompt.mdc",
		"---\ndescription: generalist\n---\nYou are the universal agent.")
	writeDoc(t, root, ".cursor/skills/tdd.mdc",
		"---\ndescription: write failing checks first\n---\nWrite the failing check before the fix.")
	writeDoc(t, root, ".cursor/skills/naming.mdc",
		"---\ndescription: naming conventions for modules\n---\nPrefer short lowercase package names.")
	writeDoc(t, root, ".cursor/implants/payments.mdc",
		"---\ndescription: refactor payment service code guidance\n---\nAlways refactor payment service code carefully.")

	res, err := resolver.New(root, quietLogger())
	require.NoError(t, err)

	emb := embedder.NewDeterministic(embedder.DefaultDeterministicDim)
	skills := retrieval.NewSkills(filepath.Join(root, ".cursor", "skills"),
		vectorstore.NewMemory(emb), nil, quietLogger())
	implants := retrieval.NewImplants(filepath.Join(root, ".cursor", "implants"),
		vectorstore.NewMemory(emb), nil, quietLogger())

	rt := router.New(vectorstore.NewMemory(emb), cls,
		router.ScanAgents(filepath.Join(root, ".cursor", "agents"), quietLogger()),
		router.WithLogger(quietLogger()))

	sessions, err := session.New(16)
	require.NoError(t, err)

	o := New(rt, res, skills, implants, sessions,
		reqcontext.NewBuilder(nil, quietLogger()), quietLogger())
	return o, root
}

func TestComposePinnedAgent(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	query := reqcontext.Query{Text: "refactor the payment service code"}
	comp, err := o.Compose(ctx, query, "developer")
	require.NoError(t, err)

	assert.Equal(t, "developer", comp.Agent)
	assert.False(t, comp.FromSession)
	assert.Contains(t, comp.Prompt, "You are the developer.")

	// preferred skill is loaded regardless of similarity
	require.Len(t, comp.Skills, 1)
	assert.Equal(t, "tdd.mdc", comp.Skills[0].ID)
	assert.Contains(t, comp.Prompt, "Write the failing check before the fix.")

	// the implant overlaps the query vocabulary and passes the gate
	require.Len(t, comp.Implants, 1)
	assert.Equal(t, "payments.mdc", comp.Implants[0].ID)
	assert.Contains(t, comp.Prompt, "## Dynamic Implants (Contextually Loaded)")
}

func TestComposePinnedDecisionIsRemembered(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	query := reqcontext.Query{Text: "refactor the payment service code"}
	_, err := o.Compose(ctx, query, "developer")
	require.NoError(t, err)

	decision := o.Route(ctx, query)
	assert.Equal(t, "developer", decision.TargetAgent)
	assert.True(t, decision.IsCached)
}

func TestComposeSessionHit(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	query := reqcontext.Query{Text: "refactor the payment service code"}
	first, err := o.Compose(ctx, query, "developer")
	require.NoError(t, err)

	second, err := o.Compose(ctx, query, "developer")
	require.NoError(t, err)
	assert.True(t, second.FromSession)
	assert.Equal(t, first.Prompt, second.Prompt)
	assert.Empty(t, second.Skills)

	o.ClearSessions()
	third, err := o.Compose(ctx, query, "developer")
	require.NoError(t, err)
	assert.False(t, third.FromSession)
}

func TestComposeMetaQueryRoutesToDefault(t *testing.T) {
	cls := &stubClassifier{decision: classifier.Decision{TargetAgent: "developer", Confidence: 0.99}}
	o, _ := newTestOrchestrator(t, cls)

	comp, err := o.Compose(context.Background(), reqcontext.Query{Text: "hello"}, "")
	require.NoError(t, err)

	assert.Equal(t, router.DefaultAgent, comp.Agent)
	assert.Contains(t, comp.Prompt, "You are the universal agent.")
	assert.Zero(t, cls.calls)
}

func TestComposeClassifierPath(t *testing.T) {
	cls := &stubClassifier{decision: classifier.Decision{
		TargetAgent: "developer",
		Confidence:  0.95,
		Reasoning:   "implementation request",
	}}
	o, _ := newTestOrchestrator(t, cls)
	ctx := context.Background()

	query := reqcontext.Query{Text: "implement the billing reconciliation workflow"}
	comp, err := o.Compose(ctx, query, "")
	require.NoError(t, err)
	assert.Equal(t, "developer", comp.Agent)
	assert.Equal(t, 1, cls.calls)

	// confident decision was written back; rerouting skips the classifier
	decision := o.Route(ctx, query)
	assert.True(t, decision.IsCached)
	assert.Equal(t, 1, cls.calls)
}

func TestComposeUnknownAgentFails(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	ctx := context.Background()

	query := reqcontext.Query{Text: "refactor the payment service code"}
	_, err := o.Compose(ctx, query, "ghost")
	require.Error(t, err)
	var notFound *resolver.AgentNotFoundError
	assert.ErrorAs(t, err, &notFound)

	// the failed pin must not leak into the routing cache
	decision := o.Route(ctx, query)
	assert.False(t, decision.IsCached)
	assert.NotEqual(t, "ghost", decision.TargetAgent)
}

func TestWarmIndexesLibraries(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	require.NoError(t, o.Warm(context.Background()))
}

func TestIsMetaQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"hello", true},
		{"hi there!", true},
		{"what can you do for me", true},
		{"who are you exactly", true},
		{"could you introduce yourself please", true},
		{"is the cache warm?", true},
		{"refactor the payment service code", false},
		{"implement the billing reconciliation workflow", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMetaQuery(tt.query))
		})
	}
}
