package recommendationservice

import (
	"context"
	"sync"

	"brandpulse/internal/adapters/ai"
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/sentiment"
)

// fakeCompleter returns a canned answer and records prompts
type fakeCompleter struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []ai.Prompt
}

func (f *fakeCompleter) Provider() ai.ProviderName { return ai.ProviderNameOpenAI }
func (f *fakeCompleter) Model() string             { return "gpt-4o-mini" }

func (f *fakeCompleter) Complete(ctx context.Context, p ai.Prompt) (*ai.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Completion{Text: f.answer, Usage: ai.Usage{PromptTokens: 120, CompletionTokens: 40}}, nil
}

func (f *fakeCompleter) Prompts() []ai.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.Prompt(nil), f.prompts...)
}

// flatCounter charges a fixed cost per text
type flatCounter struct{ cost int }

func (c flatCounter) Count(string) int { return c.cost }

func candidate(id, title, excerpt string, label sentiment.Label, score float64, keywords ...string) response.Candidate {
	return response.Candidate{
		Document: document.Document{
			ID:       id,
			Title:    title,
			Excerpt:  excerpt,
			Keywords: keywords,
		},
		Annotation: sentiment.Annotation{DocumentID: id, Label: label, Score: score},
	}
}

func inputFor(brand string, candidates ...response.Candidate) response.Input {
	in := response.Input{Brand: brand, Candidates: candidates}
	for _, c := range candidates {
		in.Documents = append(in.Documents, c.Document)
		in.Annotations = append(in.Annotations, c.Annotation)
	}
	return in
}
