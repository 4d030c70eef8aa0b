// Package reqcontext holds the per-request value types shared by the router,
// retrievers and orchestrator.
package reqcontext

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/WonderMr/agents/core/language"
)

// Query is a raw inbound request: the user's text plus optional prior-turn
// history, most-recent-last. Immutable once received.
type Query struct {
	Text    string
	History []string
}

// Context is derived from a Query once per request and read-only thereafter.
type Context struct {
	// HistoryText is the flattened conversation history.
	HistoryText string

	// Language is the detected natural language of the query text.
	Language string
}

// TailHistory returns at most the last n bytes of the flattened history,
// used to keep semantic search strings bounded. The cut backs off to a rune
// boundary so multi-byte characters are never split.
func (c Context) TailHistory(n int) string {
	if len(c.HistoryText) <= n {
		return c.HistoryText
	}
	cut := len(c.HistoryText) - n
	for cut < len(c.HistoryText) && !utf8.RuneStart(c.HistoryText[cut]) {
		cut++
	}
	return c.HistoryText[cut:]
}

// Builder derives request contexts. The language detector is injected so
// construction stays explicit.
type Builder struct {
	detector *language.Detector
	logger   *slog.Logger
}

// NewBuilder creates a context builder. detector may be nil, in which case
// the language field is left at the default.
func NewBuilder(detector *language.Detector, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{detector: detector, logger: logger}
}

// Build flattens history and detects the query language.
func (b *Builder) Build(q Query) Context {
	ctx := Context{
		HistoryText: strings.Join(q.History, "\n"),
		Language:    language.DefaultLanguage,
	}
	if b.detector != nil {
		ctx.Language = b.detector.Detect(q.Text)
	}

	b.logger.Debug("request context built",
		"history_len", len(q.History),
		"language", ctx.Language)
	return ctx
}
