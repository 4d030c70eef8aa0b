// Package router implements semantic routing of user queries to agent
// profiles. A vector cache of previously classified queries is consulted
// first; on a miss the query goes to an external classifier, and confident
// decisions are written back so the next similar query is a cache hit.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/WonderMr/agents/core/classifier"
	"github.com/WonderMr/agents/core/reqcontext"
	"github.com/WonderMr/agents/core/vectorstore"
)

const (
	// DefaultAgent receives every query the router cannot place.
	DefaultAgent = "universal_agent"

	// DefaultCacheDistance is the maximum vector distance for a cached
	// decision to be reused. Corresponds to a 0.95 cosine similarity floor.
	DefaultCacheDistance = 0.05

	// DefaultWriteBackConfidence gates which classifier decisions get
	// cached. Low-confidence answers are served but never remembered.
	DefaultWriteBackConfidence = 0.8

	// historyTailBytes bounds how much trailing history joins the query
	// when building the cache search text.
	historyTailBytes = 200
)

// Decision is the routing outcome for one query.
type Decision struct {
	TargetAgent string
	Confidence  float64
	Reasoning   string
	IsCached    bool
}

// Config tunes the router.
type Config struct {
	CacheDistance       float64 `yaml:"cache_distance"`
	WriteBackConfidence float64 `yaml:"write_back_confidence"`
}

// DefaultConfig returns the default router configuration.
func DefaultConfig() Config {
	return Config{
		CacheDistance:       DefaultCacheDistance,
		WriteBackConfidence: DefaultWriteBackConfidence,
	}
}

// SemanticRouter routes queries to agents via cache lookup with classifier
// fallback. Routing never fails: every error path degrades to DefaultAgent.
type SemanticRouter struct {
	cache      vectorstore.Store
	classifier classifier.Classifier
	agents     []string
	cfg        Config
	logger     *slog.Logger
}

// Option customizes a SemanticRouter.
type Option func(*SemanticRouter)

// WithLogger sets the router's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *SemanticRouter) {
		r.logger = logger
	}
}

// WithConfig overrides the default thresholds.
func WithConfig(cfg Config) Option {
	return func(r *SemanticRouter) {
		if cfg.CacheDistance > 0 {
			r.cfg.CacheDistance = cfg.CacheDistance
		}
		if cfg.WriteBackConfidence > 0 {
			r.cfg.WriteBackConfidence = cfg.WriteBackConfidence
		}
	}
}

// New creates a SemanticRouter over the given cache store and classifier.
// The agents slice is the closed set of routable profiles; when empty the
// router only ever answers DefaultAgent.
func New(cache vectorstore.Store, cls classifier.Classifier, agents []string, opts ...Option) *SemanticRouter {
	if len(agents) == 0 {
		agents = []string{DefaultAgent}
	}

	router := &SemanticRouter{
		cache:      cache,
		classifier: cls,
		agents:     agents,
		cfg:        DefaultConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

// Agents returns the routable agent names.
func (r *SemanticRouter) Agents() []string {
	return r.agents
}

// Route resolves a query to an agent. The cache is probed first; on a miss
// the classifier decides, and decisions above the write-back threshold are
// cached. Errors anywhere degrade to DefaultAgent with zero confidence.
func (r *SemanticRouter) Route(ctx context.Context, query reqcontext.Query, reqCtx reqcontext.Context) Decision {
	if cached, ok := r.Lookup(ctx, query.Text, reqCtx); ok {
		return cached
	}
	return r.Decide(ctx, query.Text, reqCtx)
}

// Lookup probes the cache for a decision on this query and context.
func (r *SemanticRouter) Lookup(ctx context.Context, queryText string, reqCtx reqcontext.Context) (Decision, bool) {
	return r.LookupCache(ctx, buildSearchText(queryText, reqCtx))
}

// Decide classifies the query without consulting the cache and writes the
// decision back when confident enough. Errors degrade to DefaultAgent.
func (r *SemanticRouter) Decide(ctx context.Context, queryText string, reqCtx reqcontext.Context) Decision {
	decision, err := r.classify(ctx, queryText, reqCtx.HistoryText)
	if err != nil {
		r.logger.Warn("classification failed, routing to default agent",
			slog.String("agent", DefaultAgent),
			slog.String("error", err.Error()))
		return Decision{
			TargetAgent: DefaultAgent,
			Confidence:  0.0,
			Reasoning:   fmt.Sprintf("Routing error: %v", err),
		}
	}

	if !r.knownAgent(decision.TargetAgent) {
		r.logger.Warn("classifier chose an unknown agent, routing to default",
			slog.String("agent", decision.TargetAgent))
		return Decision{
			TargetAgent: DefaultAgent,
			Confidence:  0.0,
			Reasoning:   fmt.Sprintf("Routing error: classifier chose unknown agent %q", decision.TargetAgent),
		}
	}

	if decision.Confidence > r.cfg.WriteBackConfidence {
		r.Remember(ctx, queryText, reqCtx, decision)
	}
	return decision
}

// Remember records a decision for this query and context, regardless of
// confidence. Used when the caller made the choice and it should stick.
// Decisions naming an agent outside the known set are never cached; the
// cache only ever holds routable targets.
func (r *SemanticRouter) Remember(ctx context.Context, queryText string, reqCtx reqcontext.Context, decision Decision) {
	if !r.knownAgent(decision.TargetAgent) {
		r.logger.Warn("refusing to cache decision for unknown agent",
			slog.String("agent", decision.TargetAgent))
		return
	}
	r.UpdateCache(ctx, buildSearchText(queryText, reqCtx), decision)
}

func (r *SemanticRouter) knownAgent(name string) bool {
	return slices.Contains(r.agents, name)
}

// LookupCache probes the vector cache for a previously routed query close
// enough to searchText. Store errors are logged and treated as a miss.
func (r *SemanticRouter) LookupCache(ctx context.Context, searchText string) (Decision, bool) {
	matches, err := r.cache.Query(ctx, searchText, 1)
	if err != nil {
		r.logger.Warn("router cache lookup failed", slog.String("error", err.Error()))
		return Decision{}, false
	}
	if len(matches) == 0 {
		return Decision{}, false
	}

	match := matches[0]
	if match.Distance >= r.cfg.CacheDistance {
		return Decision{}, false
	}

	target := match.Metadata["target_agent"]
	if target == "" {
		return Decision{}, false
	}

	r.logger.Debug("router cache hit",
		slog.String("agent", target),
		slog.Float64("distance", match.Distance))

	return Decision{
		TargetAgent: target,
		Confidence:  1.0,
		Reasoning:   fmt.Sprintf("Cached result (distance: %.4f)", match.Distance),
		IsCached:    true,
	}, true
}

// UpdateCache records a routing decision for searchText. Store errors are
// logged and otherwise ignored; the caller already has its answer.
func (r *SemanticRouter) UpdateCache(ctx context.Context, searchText string, decision Decision) {
	entry := vectorstore.Entry{
		ID:       uuid.NewString(),
		Document: searchText,
		Metadata: map[string]string{
			"target_agent": decision.TargetAgent,
			"reasoning":    decision.Reasoning,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
		},
	}
	if err := r.cache.Upsert(ctx, []vectorstore.Entry{entry}); err != nil {
		r.logger.Warn("router cache update failed",
			slog.String("agent", decision.TargetAgent),
			slog.String("error", err.Error()))
	}
}

func (r *SemanticRouter) classify(ctx context.Context, query, historyText string) (Decision, error) {
	if r.classifier == nil {
		return Decision{}, fmt.Errorf("no classifier configured")
	}

	result, err := r.classifier.Classify(ctx, classifier.Request{
		Agents:      r.agents,
		Query:       query,
		HistoryText: historyText,
	})
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		TargetAgent: result.TargetAgent,
		Confidence:  result.Confidence,
		Reasoning:   result.Reasoning,
	}, nil
}

// buildSearchText joins the trailing history with the query so follow-up
// phrasings of the same request land near each other in vector space.
func buildSearchText(query string, reqCtx reqcontext.Context) string {
	tail := reqCtx.TailHistory(historyTailBytes)
	if tail == "" {
		return query
	}
	return tail + "\n" + query
}
