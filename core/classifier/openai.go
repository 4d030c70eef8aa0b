package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const defaultTimeout = 30 * time.Second

// OpenAI classifies queries through the OpenAI Responses API in JSON mode.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAI creates an OpenAI-backed classifier.
func NewOpenAI(cfg Config, opts ...OpenAIOption) *OpenAI {
	requestOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(requestOpts...)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	provider := &OpenAI{
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

// OpenAIOption customizes an OpenAI classifier.
type OpenAIOption func(*OpenAI)

// WithOpenAILogger sets the provider's logger.
func WithOpenAILogger(logger *slog.Logger) OpenAIOption {
	return func(o *OpenAI) {
		o.logger = logger
	}
}

// Classify asks the model to pick an agent, enforcing JSON output.
func (o *OpenAI) Classify(ctx context.Context, req Request) (Decision, error) {
	if len(req.Agents) == 0 {
		return Decision{}, ErrNoAgents
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	input := responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(systemPrompt(req.Agents), responses.EasyInputMessageRoleSystem),
		responses.ResponseInputItemParamOfMessage(userPrompt(req), responses.EasyInputMessageRoleUser),
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(o.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: input,
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
		},
	}

	result, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return Decision{}, fmt.Errorf("openai classify: %w", err)
	}

	decision, err := parseDecision(strings.TrimSpace(result.OutputText()))
	if err != nil {
		o.logger.Warn("classifier returned malformed decision",
			slog.String("provider", "openai"),
			slog.String("model", o.model))
		return Decision{}, err
	}
	return decision, nil
}

// userPrompt flattens the query and any history into the user turn.
func userPrompt(req Request) string {
	if req.HistoryText == "" {
		return req.Query
	}
	return fmt.Sprintf("History:\n%s\n\nQuery: %s", req.HistoryText, req.Query)
}
