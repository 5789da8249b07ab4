package sentimentservice

import (
	"context"

	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/sentiment"
	"brandpulse/pkg/errors"
	"brandpulse/pkg/text"
)

// Compile-time check
var _ sentiment.Scorer = (*LexiconScorer)(nil)

// labelCut separates neutral from polar scores
const labelCut = 0.1

var positiveWords = wordSet(
	"amazing", "awesome", "benefit", "best", "boost", "celebrate", "delight",
	"excellent", "favorable", "good", "great", "improve", "innovation", "leading",
	"love", "positive", "successful", "support", "win", "growth", "record", "strong",
)

var negativeWords = wordSet(
	"awful", "bad", "concern", "crisis", "decline", "delay", "fail", "failure",
	"lawsuit", "loss", "negative", "poor", "problem", "recall", "risk", "scandal",
	"shortage", "slow", "threat", "warning", "weak", "drop", "fall",
)

// LexiconScorer labels documents by counting words from fixed polarity sets.
// It needs no network and is the default scorer.
type LexiconScorer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewLexiconScorer creates the default lexicon scorer
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{positive: positiveWords, negative: negativeWords}
}

// Score annotates each document in input order
func (s *LexiconScorer) Score(ctx context.Context, docs []document.Document) ([]sentiment.Annotation, error) {
	out := make([]sentiment.Annotation, len(docs))
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(errors.ErrScoringUnavailable, err)
		}
		label, score := s.ScoreText(d.Text())
		out[i] = sentiment.Annotation{DocumentID: d.ID, Label: label, Score: score}
	}
	return out, nil
}

// ScoreText returns (pos-neg)/(pos+neg) over lexicon hits, 0 without hits
func (s *LexiconScorer) ScoreText(content string) (sentiment.Label, float64) {
	var pos, neg int
	for _, t := range text.Tokenize(content) {
		if _, ok := s.positive[t]; ok {
			pos++
		}
		if _, ok := s.negative[t]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return sentiment.LabelNeutral, 0
	}

	score := float64(pos-neg) / float64(pos+neg)
	return LabelFor(score), score
}

// LabelFor maps a score to its label with a ±0.1 neutral band
func LabelFor(score float64) sentiment.Label {
	switch {
	case score > labelCut:
		return sentiment.LabelPositive
	case score < -labelCut:
		return sentiment.LabelNegative
	default:
		return sentiment.LabelNeutral
	}
}

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
