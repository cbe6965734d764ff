package llm

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient serves completions from the OpenAI chat API. Used when
// LLM_BACKEND=openai instead of a local Ollama server.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient constructs an OpenAI-backed client.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// ModelName returns the configured model.
func (c *OpenAIClient) ModelName() string { return c.model }

// Available probes the API with a model listing.
func (c *OpenAIClient) Available(ctx context.Context) bool {
	_, err := c.client.ListModels(ctx)
	return err == nil
}

// Generate maps the request onto a chat completion with an optional system
// message.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}
	return &GenerateResult{
		Text:             resp.Choices[0].Message.Content,
		Model:            c.model,
		ProcessingMillis: time.Since(start).Milliseconds(),
	}, nil
}
