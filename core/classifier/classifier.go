// Package classifier calls an external text-completion service to pick the
// agent profile for a query when the semantic cache misses. Providers return
// a structured decision; anything that does not parse into the expected
// shape is a validation failure, reported as an error and never silently
// swallowed.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidDecision indicates a provider response that does not parse
	// into the expected decision shape.
	ErrInvalidDecision = errors.New("classifier response does not match decision schema")

	// ErrNoAgents indicates a classify call with an empty agent list.
	ErrNoAgents = errors.New("no agents to classify into")
)

// Classifier picks the agent profile for one request.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Decision, error)
}

// Request carries everything a provider needs for one classification.
type Request struct {
	// Agents is the list of known agent names to choose from.
	Agents []string

	// Query is the user's raw input text.
	Query string

	// HistoryText is the flattened prior-turn history, empty when absent.
	HistoryText string
}

// Decision is the structured classification result.
type Decision struct {
	TargetAgent string  `json:"target_agent"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// Config selects and configures a provider.
type Config struct {
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the default classifier configuration.
func DefaultConfig() Config {
	return Config{
		Provider: "openai",
		Model:    "gpt-5-mini",
		Timeout:  30 * time.Second,
	}
}

// New constructs a classifier provider from configuration.
func New(cfg Config) (Classifier, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	case "anthropic":
		return NewAnthropic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

// systemPrompt builds the routing instruction enumerating the known agents.
func systemPrompt(agents []string) string {
	list, _ := json.Marshal(agents)

	var b strings.Builder
	b.WriteString("You are the Master Router for the Agents system.\n")
	b.WriteString("Your job is to classify the user's request into one of the following agent profiles:\n")
	b.Write(list)
	b.WriteString("\n\nAnalyze the intent and complexity.\n")
	b.WriteString("Return a JSON object with the following fields:\n")
	b.WriteString(`- "target_agent": (string) One of the available agents.` + "\n")
	b.WriteString(`- "confidence": (float) 0.0 to 1.0.` + "\n")
	b.WriteString(`- "reasoning": (string) Explanation for the choice.` + "\n")
	return b.String()
}

// parseDecision validates a provider's raw JSON into a Decision.
func parseDecision(raw string) (Decision, error) {
	var decision Decision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrInvalidDecision, err)
	}
	if decision.TargetAgent == "" {
		return Decision{}, fmt.Errorf("%w: missing target_agent", ErrInvalidDecision)
	}
	if decision.Confidence < 0 || decision.Confidence > 1 {
		return Decision{}, fmt.Errorf("%w: confidence %v out of range", ErrInvalidDecision, decision.Confidence)
	}
	return decision, nil
}
