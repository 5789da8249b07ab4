package sentimentservice

import (
	"context"
	"fmt"

	"brandpulse/internal/adapters/ai"
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
	"brandpulse/pkg/templates"
)

// Compile-time check
var _ sentiment.Scorer = (*LLMScorer)(nil)

const scorerSystemPrompt = "You are a precise media sentiment analyst. Answer with JSON only."

type promptArticle struct {
	Index   int
	Title   string
	Excerpt string
}

type modelAnnotation struct {
	Label sentiment.Label `json:"label"`
	Score float64         `json:"score"`
}

type modelAnnotations struct {
	Annotations []modelAnnotation `json:"annotations"`
}

// LLMScorer labels documents with a language model, one call per batch.
// The batch must fit the prompt budget whole; scoring is all-or-nothing.
type LLMScorer struct {
	completer   ai.Completer
	budget      *ai.Budget
	templates   *templates.Registry
	temperature float64
	maxTokens   int
	log         *logger.Logger
}

// NewLLMScorer creates a scorer backed by completer
func NewLLMScorer(completer ai.Completer, budget *ai.Budget, reg *templates.Registry, temperature float64, maxTokens int) *LLMScorer {
	return &LLMScorer{
		completer:   completer,
		budget:      budget,
		templates:   reg,
		temperature: temperature,
		maxTokens:   maxTokens,
		log: logger.Get().With(
			"component", "llm_scorer",
			"provider", completer.Provider(),
			"model", completer.Model(),
		),
	}
}

// Score annotates docs in input order
func (s *LLMScorer) Score(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error) {
	if len(docs) == 0 {
		return []sentiment.Annotation{}, nil
	}

	prompt, err := s.buildPrompt(docs)
	if err != nil {
		return nil, errors.Join(errors.ErrScoringUnavailable, err)
	}

	completion, err := s.completer.Complete(ctx, ai.Prompt{
		System:      scorerSystemPrompt,
		User:        prompt,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		JSON:        true,
	})
	if err != nil {
		return nil, errors.Join(errors.ErrScoringUnavailable, err)
	}

	var out modelAnnotations
	if err := ai.DecodeJSON(completion.Text, &out); err != nil {
		return nil, errors.Join(errors.ErrScoringUnavailable, err)
	}
	if len(out.Annotations) != len(docs) {
		return nil, errors.Wrapf(errors.ErrScoringUnavailable,
			"model returned %d annotations for %d documents", len(out.Annotations), len(docs))
	}

	annotations := make([]sentiment.Annotation, len(docs))
	for i, m := range out.Annotations {
		a := sentiment.Annotation{DocumentID: docs[i].ID, Label: m.Label, Score: m.Score}
		if !a.Valid() {
			return nil, errors.Wrapf(errors.ErrScoringUnavailable,
				"invalid annotation %d: label %q score %.3f", i+1, m.Label, m.Score)
		}
		annotations[i] = a
	}

	s.log.Debugw("Scored batch",
		"documents", len(docs),
		"prompt_tokens", completion.Usage.PromptTokens,
	)
	return annotations, nil
}

func (s *LLMScorer) buildPrompt(docs []document.Document) (string, error) {
	articles := make([]promptArticle, len(docs))
	sections := make([]string, len(docs))
	for i, d := range docs {
		articles[i] = promptArticle{Index: i + 1, Title: d.Title, Excerpt: d.Excerpt}
		sections[i] = fmt.Sprintf("[%d] %s\n%s\n", i+1, d.Title, d.Excerpt)
	}

	if fitted := s.budget.Fit(scorerSystemPrompt, sections); len(fitted) < len(sections) {
		return "", errors.Wrapf(errors.ErrInvalidInput,
			"prompt budget fits %d of %d documents", len(fitted), len(sections))
	}

	return s.templates.Render("prompts/score_sentiment", struct{ Articles []promptArticle }{articles})
}
