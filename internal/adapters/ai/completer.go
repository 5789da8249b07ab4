package ai

import "context"

// Completer sends a single prompt to a language model and returns its text.
// Implementations wait on their rate limiter before calling out.
type Completer interface {
	Provider() ProviderName
	Model() string
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}

// Prompt is one system + user exchange
type Prompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response
	JSON bool
}

// Completion is the model's answer
type Completion struct {
	Text  string
	Usage Usage
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
