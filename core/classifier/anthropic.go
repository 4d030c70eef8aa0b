package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 1024

// Anthropic classifies queries through the Anthropic Messages API. The API
// has no JSON output mode, so the decision object is carved out of the text
// response.
type Anthropic struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewAnthropic creates an Anthropic-backed classifier.
func NewAnthropic(cfg Config, opts ...AnthropicOption) *Anthropic {
	requestOpts := []option.RequestOption{}
	if cfg.APIKey != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(requestOpts...)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	provider := &Anthropic{
		client:  &client,
		model:   cfg.Model,
		timeout: timeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider
}

// AnthropicOption customizes an Anthropic classifier.
type AnthropicOption func(*Anthropic)

// WithAnthropicLogger sets the provider's logger.
func WithAnthropicLogger(logger *slog.Logger) AnthropicOption {
	return func(a *Anthropic) {
		a.logger = logger
	}
}

// Classify asks the model to pick an agent.
func (a *Anthropic) Classify(ctx context.Context, req Request) (Decision, error) {
	if len(req.Agents) == 0 {
		return Decision{}, ErrNoAgents
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(req.Agents) + "\nRespond with the JSON object only."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(req))),
		},
	})
	if err != nil {
		return Decision{}, fmt.Errorf("anthropic classify: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	raw := extractJSONObject(text.String())
	if raw == "" {
		a.logger.Warn("classifier response contained no JSON object",
			slog.String("provider", "anthropic"),
			slog.String("model", a.model))
		return Decision{}, fmt.Errorf("%w: no JSON object in response", ErrInvalidDecision)
	}

	decision, err := parseDecision(raw)
	if err != nil {
		a.logger.Warn("classifier returned malformed decision",
			slog.String("provider", "anthropic"),
			slog.String("model", a.model))
		return Decision{}, err
	}
	return decision, nil
}

// extractJSONObject returns the first balanced {...} block in text, or "".
func extractJSONObject(text string) string {
	start := -1
	depth := 0
	for i, r := range text {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
