package response

import (
	"brandpulse/internal/domain/document"
	"brandpulse/internal/domain/risk"
	"brandpulse/internal/domain/sentiment"
)

// GeneratedResponse is a candidate reply or recommendation awaiting approval
type GeneratedResponse struct {
	ID               string  `json:"id"`
	Text             string  `json:"text"`
	Quality          float64 `json:"quality"`
	SourceDocumentID string  `json:"source_document_id,omitempty"`
	Platform         string  `json:"platform,omitempty"`
	// Virality is an optional [0,1] estimate of reach; zero when unknown
	Virality float64 `json:"virality,omitempty"`
}

// Candidate pairs a document that warrants a response with its annotation
type Candidate struct {
	Document   document.Document    `json:"document"`
	Annotation sentiment.Annotation `json:"annotation"`
}

// Input is everything a generator may look at
type Input struct {
	Brand       string
	Documents   []document.Document
	Annotations []sentiment.Annotation
	Assessment  risk.Assessment
	Candidates  []Candidate
}

// Plan is a generator's output
type Plan struct {
	Responses       []GeneratedResponse `json:"responses"`
	Recommendations []string            `json:"recommendations"`
	NextActions     []string            `json:"next_actions"`
}
