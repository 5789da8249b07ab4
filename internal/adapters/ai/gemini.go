package ai

import (
	"context"

	"google.golang.org/genai"

	"brandpulse/internal/metrics"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// Compile-time check
var _ Completer = (*GeminiCompleter)(nil)

// GeminiCompleter implements Completer using the Google GenAI SDK
type GeminiCompleter struct {
	client  *genai.Client
	model   string
	limiter RateLimiter
	log     *logger.Logger
}

// NewGeminiCompleter creates a Gemini completer against the Gemini API backend
func NewGeminiCompleter(ctx context.Context, apiKey, model string, limiter RateLimiter) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}

	return &GeminiCompleter{
		client:  client,
		model:   model,
		limiter: limiter,
		log:     logger.Get().With("component", "gemini_completer", "model", model),
	}, nil
}

// Provider returns provider name.
func (c *GeminiCompleter) Provider() ProviderName { return ProviderNameGemini }

// Model returns the configured model
func (c *GeminiCompleter) Model() string { return c.model }

// Complete sends one GenerateContent request
func (c *GeminiCompleter) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{Provider: ProviderNameGemini, Err: err}
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       genai.Ptr(float32(p.Temperature)),
	}
	if p.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
	}
	if p.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(p.User), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "gemini API call failed")
	}

	out := &Completion{Text: resp.Text()}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	if out.Text == "" {
		return nil, errors.Wrap(errors.ErrExternal, "gemini returned an empty response")
	}

	metrics.AITokens.WithLabelValues(string(c.Provider()), c.model).Add(float64(out.Usage.PromptTokens))
	c.log.Debugw("Gemini completion", "prompt_tokens", out.Usage.PromptTokens, "completion_tokens", out.Usage.CompletionTokens)
	return out, nil
}
