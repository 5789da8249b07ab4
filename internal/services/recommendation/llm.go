package recommendationservice

import (
	"context"
	"fmt"
	"strings"

	"brandpulse/internal/adapters/ai"
	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
	"brandpulse/pkg/templates"
	"brandpulse/pkg/text"
)

// Compile-time check
var _ response.Generator = (*LLMGenerator)(nil)

const generatorSystemPrompt = "You are a careful brand communications assistant. Answer with JSON only."

// LLMConfig tunes the model call
type LLMConfig struct {
	Temperature     float64
	MaxOutputTokens int
}

// LLMGenerator drafts replies with a language model. Mentions are added to
// the prompt in candidate order until the token budget is spent.
type LLMGenerator struct {
	completer ai.Completer
	budget    *ai.Budget
	templates *templates.Registry
	cfg       LLMConfig
	log       *logger.Logger
}

// NewLLMGenerator creates a generator backed by completer
func NewLLMGenerator(completer ai.Completer, budget *ai.Budget, reg *templates.Registry, cfg LLMConfig) *LLMGenerator {
	return &LLMGenerator{
		completer: completer,
		budget:    budget,
		templates: reg,
		cfg:       cfg,
		log: logger.Get().With(
			"component", "llm_generator",
			"provider", completer.Provider(),
			"model", completer.Model(),
		),
	}
}

type promptMention struct {
	ID      string
	Label   string
	Score   float64
	Title   string
	Excerpt string
}

type generatePrompt struct {
	Brand      string
	Assessment risk.Assessment
	Keywords   []string
	Mentions   []promptMention
}

type modelReply struct {
	MentionID string   `json:"mention_id"`
	Text      string   `json:"text"`
	Quality   *float64 `json:"quality"`
}

type modelPlan struct {
	Responses       []modelReply `json:"responses"`
	Recommendations []string     `json:"recommendations"`
	NextActions     []string     `json:"next_actions"`
}

// Generate asks the model for replies to in.Candidates. Any malformed
// answer fails the whole call.
func (g *LLMGenerator) Generate(ctx context.Context, in response.Input) (response.Plan, error) {
	plan := response.Plan{
		Responses:       []response.GeneratedResponse{},
		Recommendations: []string{},
		NextActions:     []string{},
	}
	if len(in.Candidates) == 0 {
		return plan, nil
	}

	prompt, offered, err := g.buildPrompt(in)
	if err != nil {
		return response.Plan{}, errors.Join(errors.ErrGenerationUnavailable, err)
	}

	completion, err := g.completer.Complete(ctx, ai.Prompt{
		System:      generatorSystemPrompt,
		User:        prompt,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxOutputTokens,
		JSON:        true,
	})
	if err != nil {
		return response.Plan{}, errors.Join(errors.ErrGenerationUnavailable, err)
	}

	var out modelPlan
	if err := ai.DecodeJSON(completion.Text, &out); err != nil {
		return response.Plan{}, errors.Join(errors.ErrGenerationUnavailable, err)
	}

	used := make(map[string]bool, len(out.Responses))
	for _, r := range out.Responses {
		c, ok := offered[r.MentionID]
		if !ok {
			return response.Plan{}, errors.Wrapf(errors.ErrGenerationUnavailable, "reply for unknown mention %q", r.MentionID)
		}
		if used[r.MentionID] {
			return response.Plan{}, errors.Wrapf(errors.ErrGenerationUnavailable, "duplicate reply for mention %q", r.MentionID)
		}
		used[r.MentionID] = true

		reply := strings.TrimSpace(r.Text)
		if reply == "" {
			return response.Plan{}, errors.Wrapf(errors.ErrGenerationUnavailable, "empty reply for mention %q", r.MentionID)
		}

		quality := Quality(reply, in.Brand)
		if r.Quality != nil {
			quality = (quality + clamp01(*r.Quality)) / 2
		}

		plan.Responses = append(plan.Responses, response.GeneratedResponse{
			ID:               "reply-" + c.Document.ID,
			Text:             reply,
			Quality:          quality,
			SourceDocumentID: c.Document.ID,
			Platform:         PlatformNews,
			Virality:         UrgencyOf(c.Document.Text()).Virality(),
		})
	}
	plan.Recommendations = unique(append(plan.Recommendations, out.Recommendations...))
	plan.NextActions = unique(append(plan.NextActions, out.NextActions...))

	g.log.Debugw("Model drafted replies",
		"brand", in.Brand,
		"offered", len(offered),
		"replies", len(plan.Responses),
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
	)
	return plan, nil
}

// buildPrompt renders the generation prompt with as many candidates as the
// budget allows and returns the offered candidates by document id
func (g *LLMGenerator) buildPrompt(in response.Input) (string, map[string]response.Candidate, error) {
	data := generatePrompt{
		Brand:      in.Brand,
		Assessment: in.Assessment,
		Keywords:   candidateKeywords(in),
		Mentions:   []promptMention{},
	}

	overhead, err := g.templates.Render("prompts/generate_responses", data)
	if err != nil {
		return "", nil, err
	}

	mentions := make([]promptMention, len(in.Candidates))
	sections := make([]string, len(in.Candidates))
	for i, c := range in.Candidates {
		mentions[i] = promptMention{
			ID:      c.Document.ID,
			Label:   string(c.Annotation.Label),
			Score:   c.Annotation.Score,
			Title:   c.Document.Title,
			Excerpt: c.Document.Excerpt,
		}
		sections[i] = fmt.Sprintf("[%s] (%s, %.2f) %s\n%s\n", c.Document.ID, c.Annotation.Label, c.Annotation.Score, c.Document.Title, c.Document.Excerpt)
	}

	fitted := g.budget.Fit(generatorSystemPrompt+overhead, sections)
	if len(fitted) == 0 {
		return "", nil, errors.Wrap(errors.ErrInvalidInput, "prompt token budget too small for a single mention")
	}
	if len(fitted) < len(sections) {
		g.log.Infow("Prompt budget trimmed mentions", "offered", len(fitted), "candidates", len(sections))
	}

	data.Mentions = mentions[:len(fitted)]
	prompt, err := g.templates.Render("prompts/generate_responses", data)
	if err != nil {
		return "", nil, err
	}

	offered := make(map[string]response.Candidate, len(fitted))
	for _, c := range in.Candidates[:len(fitted)] {
		offered[c.Document.ID] = c
	}
	return prompt, offered, nil
}

func candidateKeywords(in response.Input) []string {
	var sb strings.Builder
	for _, c := range in.Candidates {
		sb.WriteString(strings.Join(c.Document.Keywords, " "))
		sb.WriteByte(' ')
	}
	return text.Keywords(sb.String(), in.Brand, 5)
}
