package llm

import (
	"context"
	"strings"
)

// MockClient produces deterministic local replies when no Groq key is
// configured. Useful for development and tests.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return Response{}, ErrEmptyCompletion
	}

	// Echo the tail of the prompt so transcripts stay readable in dev.
	lines := strings.Split(prompt, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" || last == "AI:" {
		if len(lines) > 1 {
			last = strings.TrimSpace(lines[len(lines)-2])
		}
	}
	return Response{Text: "Mock coach reply to: " + last}, nil
}
