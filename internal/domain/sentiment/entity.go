package sentiment

import "time"

// Label is the discrete sentiment class
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Valid reports whether the label is one of the three known classes
func (l Label) Valid() bool {
	switch l {
	case LabelPositive, LabelNeutral, LabelNegative:
		return true
	}
	return false
}

// Annotation is the sentiment of one document. Score is in [-1, 1].
type Annotation struct {
	DocumentID string  `json:"document_id"`
	Label      Label   `json:"label"`
	Score      float64 `json:"score"`
}

// Valid reports whether the annotation respects label and range constraints
func (a Annotation) Valid() bool {
	return a.Label.Valid() && a.Score >= -1 && a.Score <= 1
}

// Mention is an archived document with its annotation (ClickHouse row)
type Mention struct {
	RunID       string    `ch:"run_id"`
	Brand       string    `ch:"brand"`
	DocumentID  string    `ch:"document_id"`
	Source      string    `ch:"source"`
	Title       string    `ch:"title"`
	URL         string    `ch:"url"`
	Label       string    `ch:"label"`
	Score       float64   `ch:"score"`
	Keywords    []string  `ch:"keywords"`
	PublishedAt time.Time `ch:"published_at"`
	CollectedAt time.Time `ch:"collected_at"`
}

// BrandDaily is a per-day sentiment rollup for one brand
type BrandDaily struct {
	Day           time.Time `ch:"day"`
	Mentions      uint64    `ch:"mentions"`
	AvgScore      float64   `ch:"avg_score"`
	NegativeCount uint64    `ch:"negative_count"`
	PositiveCount uint64    `ch:"positive_count"`
}
