// Package orchestrator composes the final system prompt for a request:
// route the query to an agent, load and expand the agent's prompt, enrich
// it with relevant skills and implants, and cache the result per session.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/WonderMr/agents/core/reqcontext"
	"github.com/WonderMr/agents/core/resolver"
	"github.com/WonderMr/agents/core/retrieval"
	"github.com/WonderMr/agents/core/router"
	"github.com/WonderMr/agents/core/session"
)

// Composition is the fully assembled answer for one request.
type Composition struct {
	Agent       string
	Prompt      string
	Decision    router.Decision
	Skills      []retrieval.Result
	Implants    []retrieval.Result
	FromSession bool
}

// Orchestrator wires the routing, resolution and retrieval stages together.
type Orchestrator struct {
	router   *router.SemanticRouter
	resolver *resolver.Resolver
	skills   *retrieval.Retriever
	implants *retrieval.Retriever
	sessions *session.Cache
	builder  *reqcontext.Builder
	logger   *slog.Logger
}

// New creates an orchestrator. skills and implants may be nil, in which
// case composition skips the corresponding enrichment.
func New(
	rt *router.SemanticRouter,
	res *resolver.Resolver,
	skills, implants *retrieval.Retriever,
	sessions *session.Cache,
	builder *reqcontext.Builder,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		router:   rt,
		resolver: res,
		skills:   skills,
		implants: implants,
		sessions: sessions,
		builder:  builder,
		logger:   logger,
	}
}

// Warm pre-indexes the document libraries so the first request does not
// pay the indexing cost.
func (o *Orchestrator) Warm(ctx context.Context) error {
	for _, r := range []*retrieval.Retriever{o.skills, o.implants} {
		if r == nil {
			continue
		}
		if err := r.EnsureIndexed(ctx); err != nil {
			return fmt.Errorf("warm %s: %w", r.Collection(), err)
		}
	}
	return nil
}

// ClearSessions drops every cached composition.
func (o *Orchestrator) ClearSessions() {
	if o.sessions != nil {
		o.sessions.Clear()
	}
}

// Route resolves the target agent for a query without composing a prompt.
func (o *Orchestrator) Route(ctx context.Context, query reqcontext.Query) router.Decision {
	reqCtx := o.builder.Build(query)
	return o.decide(ctx, query, reqCtx)
}

// Compose routes a query (unless pinnedAgent names the target) and builds
// the enriched system prompt. Retrieval failures degrade to an unenriched
// prompt; a missing agent prompt is an error.
func (o *Orchestrator) Compose(ctx context.Context, query reqcontext.Query, pinnedAgent string) (Composition, error) {
	reqCtx := o.builder.Build(query)

	var decision router.Decision
	if pinnedAgent != "" {
		decision = router.Decision{
			TargetAgent: pinnedAgent,
			Confidence:  1.0,
			Reasoning:   "Agent pinned by caller",
		}
		// the caller made this choice, remember it
		o.router.Remember(ctx, query.Text, reqCtx, decision)
	} else {
		decision = o.decide(ctx, query, reqCtx)
	}
	agent := decision.TargetAgent

	if o.sessions != nil {
		if prompt, ok := o.sessions.Get(agent, query.Text); ok {
			o.logger.Debug("session cache hit", slog.String("agent", agent))
			return Composition{
				Agent:       agent,
				Prompt:      prompt,
				Decision:    decision,
				FromSession: true,
			}, nil
		}
	}

	base, err := o.resolver.LoadAgentPrompt(agent)
	if err != nil {
		return Composition{}, fmt.Errorf("load prompt for %s: %w", agent, err)
	}

	meta := o.resolver.AgentMetadata(agent)

	comp := Composition{
		Agent:    agent,
		Decision: decision,
	}

	if o.skills != nil {
		results, err := o.skills.Retrieve(ctx, query.Text, retrieval.Options{
			PreferredIDs: meta.PreferredSkills,
		})
		if err != nil {
			o.logger.Error("skills retrieval failed", slog.String("error", err.Error()))
		} else {
			comp.Skills = results
		}
	}

	if o.implants != nil {
		results, err := o.implants.Retrieve(ctx, query.Text, retrieval.Options{
			Role:        agent,
			HistoryTail: reqCtx.HistoryText,
		})
		if err != nil {
			o.logger.Error("implants retrieval failed", slog.String("error", err.Error()))
		} else {
			comp.Implants = results
		}
	}

	comp.Prompt = assemblePrompt(base, comp.Skills, comp.Implants)

	if o.sessions != nil {
		o.sessions.Put(agent, query.Text, comp.Prompt)
	}
	return comp, nil
}

// decide answers from the routing cache, the meta-query shortcut, or the
// classifier, in that order.
func (o *Orchestrator) decide(ctx context.Context, query reqcontext.Query, reqCtx reqcontext.Context) router.Decision {
	if cached, ok := o.router.Lookup(ctx, query.Text, reqCtx); ok {
		return cached
	}

	if IsMetaQuery(query.Text) {
		o.logger.Info("meta-query detected, routing to default agent",
			slog.String("agent", router.DefaultAgent))
		return router.Decision{
			TargetAgent: router.DefaultAgent,
			Confidence:  1.0,
			Reasoning:   "Auto-fallback: meta-query detected (greeting/capabilities/ambiguous)",
		}
	}

	return o.router.Decide(ctx, query.Text, reqCtx)
}

// assemblePrompt appends the formatted skill and implant blocks to the base
// prompt. Empty blocks leave the base untouched.
func assemblePrompt(base string, skills, implants []retrieval.Result) string {
	var blocks []string
	if block := retrieval.FormatSkills(skills); block != "" {
		blocks = append(blocks, block)
	}
	if block := retrieval.FormatImplants(implants); block != "" {
		blocks = append(blocks, block)
	}
	if len(blocks) == 0 {
		return base
	}
	return base + "\n\n" + strings.Join(blocks, "\n\n")
}
