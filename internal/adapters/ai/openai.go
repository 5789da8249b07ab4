package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"brandpulse/internal/metrics"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
)

// Compile-time check
var _ Completer = (*OpenAICompleter)(nil)

// OpenAICompleter implements Completer using the official OpenAI Go SDK
type OpenAICompleter struct {
	client  openai.Client
	model   string
	limiter RateLimiter
	log     *logger.Logger
}

// NewOpenAICompleter creates an OpenAI chat completer.
// Extra request options (base URL, http client) are passed through to the SDK.
func NewOpenAICompleter(apiKey, model string, limiter RateLimiter, timeout time.Duration, opts ...option.RequestOption) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "openai API key is required")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}

	return &OpenAICompleter{
		client:  openai.NewClient(append(base, opts...)...),
		model:   model,
		limiter: limiter,
		log:     logger.Get().With("component", "openai_completer", "model", model),
	}, nil
}

// Provider returns provider name.
func (c *OpenAICompleter) Provider() ProviderName { return ProviderNameOpenAI }

// Model returns the configured model
func (c *OpenAICompleter) Model() string { return c.model }

// Complete sends one chat completion request
func (c *OpenAICompleter) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{Provider: ProviderNameOpenAI, Err: err}
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(p.System),
			openai.UserMessage(p.User),
		},
		Temperature: openai.Float(p.Temperature),
	}
	if p.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(p.MaxTokens))
	}
	if p.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai API call failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Wrap(errors.ErrExternal, "openai returned no choices")
	}

	out := &Completion{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	metrics.AITokens.WithLabelValues(string(c.Provider()), c.model).Add(float64(out.Usage.PromptTokens))
	c.log.Debugw("OpenAI completion",
		"prompt_tokens", out.Usage.PromptTokens,
		"completion_tokens", out.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason,
	)
	return out, nil
}
