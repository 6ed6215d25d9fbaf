package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultModel matches the model the service was prompt-tuned against.
const DefaultModel = "llama3-8b-8192"

// GroqClient talks to Groq's chat-completions API through the OpenAI wire
// format. Model and temperature are fixed at construction; every call sends
// the composed prompt as a single user message.
type GroqClient struct {
	api         *openai.Client
	model       string
	temperature float32
}

func NewGroqClient(cfg Config) *GroqClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	apiCfg.BaseURL = baseURL

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	return &GroqClient{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       model,
		temperature: temperature,
	}
}

func (c *GroqClient) Complete(ctx context.Context, req Request) (Response, error) {
	res, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("groq completion: %w", err)
	}
	if len(res.Choices) == 0 {
		return Response{}, ErrEmptyCompletion
	}
	text := res.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return Response{}, ErrEmptyCompletion
	}
	return Response{Text: text}, nil
}
