package recommendationservice

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"brandpulse/internal/domain/response"
	"brandpulse/internal/domain/risk"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/logger"
	"brandpulse/pkg/templates"
	"brandpulse/pkg/text"
)

// Compile-time check
var _ response.Generator = (*RulesGenerator)(nil)

// PlatformNews marks replies to news coverage
const PlatformNews = "news"

// ReplyType selects the reply template
type ReplyType string

const (
	ReplyComplaint        ReplyType = "complaint"
	ReplyNegativeFeedback ReplyType = "negative_feedback"
	ReplyPositiveFeedback ReplyType = "positive_feedback"
	ReplyQuestion         ReplyType = "question"
	ReplyGeneral          ReplyType = "general"
)

// Advice attached to the plan
const (
	RecEscalateUrgent   = "Consider escalating to human agent due to high urgency level"
	RecShortenReply     = "Consider shortening response for social media platforms"
	RecAddEmpathy       = "Consider adding empathetic language for negative sentiment"
	RecAddNextSteps     = "Consider adding clear next steps or contact information"
	ActionHoldStatement = "Prepare a holding statement in case coverage escalates"
)

var (
	complaintWords = []string{"complaint", "problem", "issue", "disappointed", "refund"}
	praiseWords    = []string{"love", "great", "amazing", "excellent"}
	questionWords  = []string{"how", "what", "when", "where", "why", "help", "support"}
	empathyWords   = []string{"sorry", "apologize", "apologies", "understand"}
)

// replyData is the data every reply template receives
type replyData struct {
	Brand  string
	Topic  string
	Refund bool
}

// RulesGenerator drafts one templated reply per candidate. It needs no
// network and is the default generator.
type RulesGenerator struct {
	templates *templates.Registry
	log       *logger.Logger
}

// NewRulesGenerator creates a generator over the reply templates in reg
func NewRulesGenerator(reg *templates.Registry) *RulesGenerator {
	return &RulesGenerator{
		templates: reg,
		log:       logger.Get().With("component", "rules_generator"),
	}
}

// Generate drafts replies for in.Candidates and derives plan advice
func (g *RulesGenerator) Generate(ctx context.Context, in response.Input) (response.Plan, error) {
	plan := response.Plan{
		Responses:       []response.GeneratedResponse{},
		Recommendations: []string{},
		NextActions:     []string{},
	}

	var urgent int
	for _, c := range in.Candidates {
		if err := ctx.Err(); err != nil {
			return response.Plan{}, errors.Join(errors.ErrGenerationUnavailable, err)
		}

		content := c.Document.Text()
		kind := Classify(c)
		data := replyData{Brand: in.Brand, Refund: text.ContainsAny(content, "refund")}
		if len(c.Document.Keywords) > 0 {
			data.Topic = c.Document.Keywords[0]
		}

		reply, err := g.templates.Render("responses/"+string(kind), data)
		if err != nil {
			return response.Plan{}, errors.Join(errors.ErrGenerationUnavailable, err)
		}
		reply = strings.TrimSpace(reply)

		urgency := UrgencyOf(content)
		if urgency == UrgencyHigh {
			urgent++
		}

		plan.Responses = append(plan.Responses, response.GeneratedResponse{
			ID:               "reply-" + c.Document.ID,
			Text:             reply,
			Quality:          Quality(reply, in.Brand),
			SourceDocumentID: c.Document.ID,
			Platform:         PlatformNews,
			Virality:         urgency.Virality(),
		})
		plan.Recommendations = append(plan.Recommendations, replyAdvice(reply, c.Annotation, urgency)...)
	}

	if topics := concernTopics(in); len(topics) > 0 {
		plan.Recommendations = append(plan.Recommendations,
			fmt.Sprintf("Address recurring concerns: %s", strings.Join(topics, ", ")))
	}
	if urgent > 0 {
		plan.NextActions = append(plan.NextActions, fmt.Sprintf("Prioritize %d high-urgency mentions", urgent))
	}
	if in.Assessment.CrisisLevel == risk.LevelModerate {
		plan.NextActions = append(plan.NextActions, ActionHoldStatement)
	}

	plan.Recommendations = unique(plan.Recommendations)
	g.log.Debugw("Drafted replies",
		"brand", in.Brand,
		"candidates", len(in.Candidates),
		"urgent", urgent,
	)
	return plan, nil
}

// Classify picks the reply template for a candidate
func Classify(c response.Candidate) ReplyType {
	content := c.Document.Text()
	tokens := text.Tokenize(content)

	switch {
	case text.ContainsAny(content, complaintWords...):
		return ReplyComplaint
	case c.Annotation.Label == sentiment.LabelNegative:
		return ReplyNegativeFeedback
	case c.Annotation.Label == sentiment.LabelPositive || hasToken(tokens, praiseWords):
		return ReplyPositiveFeedback
	case strings.Contains(content, "?") || hasToken(tokens, questionWords):
		return ReplyQuestion
	default:
		return ReplyGeneral
	}
}

func replyAdvice(reply string, a sentiment.Annotation, u Urgency) []string {
	var out []string
	if u == UrgencyHigh {
		out = append(out, RecEscalateUrgent)
	}
	if utf8.RuneCountInString(reply) > MaxResponseLength {
		out = append(out, RecShortenReply)
	}
	if a.Label == sentiment.LabelNegative && !text.ContainsAny(reply, empathyWords...) {
		out = append(out, RecAddEmpathy)
	}
	if !text.ContainsAny(reply, "contact", "support", "help", "visit", "email", "dm ") {
		out = append(out, RecAddNextSteps)
	}
	return out
}

// concernTopics returns the top keywords across negative mentions
func concernTopics(in response.Input) []string {
	negative := make(map[string]bool, len(in.Annotations))
	for _, a := range in.Annotations {
		if a.Label == sentiment.LabelNegative {
			negative[a.DocumentID] = true
		}
	}
	if len(negative) < 2 {
		return nil
	}

	var sb strings.Builder
	for _, d := range in.Documents {
		if negative[d.ID] {
			sb.WriteString(strings.Join(d.Keywords, " "))
			sb.WriteByte(' ')
		}
	}
	return text.Keywords(sb.String(), in.Brand, 3)
}

func hasToken(tokens, words []string) bool {
	for _, t := range tokens {
		for _, w := range words {
			if t == w {
				return true
			}
		}
	}
	return false
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
