package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request carries one composed prompt to the completion service.
type Request struct {
	Prompt string
}

// Response is the full completion text for a request.
type Response struct {
	Text string
}

// ErrEmptyCompletion is returned when the service answers with no text.
// Callers treat it like any other completion failure: the turn is dropped.
var ErrEmptyCompletion = errors.New("completion service returned empty text")

// Client sends a single prompt to a text-generation service and returns its
// reply. Implementations make exactly one attempt; retry policy, if any ever
// exists, belongs to the caller.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config controls client construction.
type Config struct {
	Mode        string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// NewClient builds a completion client for the configured mode. "auto" picks
// the Groq-backed client when an API key is present and falls back to the
// deterministic mock otherwise.
func NewClient(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewGroqClient(cfg), nil
		}
		return NewMockClient(), nil
	case "groq":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("llm: GROQ_API_KEY is required for groq mode")
		}
		return NewGroqClient(cfg), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("llm: unsupported mode %q", cfg.Mode)
	}
}
