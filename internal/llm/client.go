package llm

import "context"

// GenerateRequest describes one completion call.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// GenerateResult is the model's answer plus timing metadata persisted on
// assistant messages.
type GenerateResult struct {
	Text             string
	Model            string
	ProcessingMillis int64
}

// Client is the interface the core services program against. Implementations
// exist for Ollama and OpenAI-compatible APIs.
type Client interface {
	// Generate runs a single completion.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	// Available reports whether the configured model can serve requests.
	Available(ctx context.Context) bool
	// ModelName identifies the configured model for health reporting.
	ModelName() string
}
