package document

import "time"

// Document is a single brand mention collected from a source.
// Documents are created once by a Source and never mutated afterwards.
type Document struct {
	ID          string    `json:"id" ch:"document_id"`
	Title       string    `json:"title" ch:"title"`
	Source      string    `json:"source" ch:"source"`
	Author      string    `json:"author,omitempty" ch:"author"`
	URL         string    `json:"url" ch:"url"`
	PublishedAt time.Time `json:"published_at" ch:"published_at"`
	Excerpt     string    `json:"excerpt" ch:"excerpt"`
	Keywords    []string  `json:"keywords" ch:"keywords"`
}

// Text returns the content used for scoring and keyword checks
func (d Document) Text() string {
	if d.Excerpt == "" {
		return d.Title
	}
	if d.Title == "" {
		return d.Excerpt
	}
	return d.Title + ". " + d.Excerpt
}

// Batch is the result of one fetch
type Batch struct {
	Documents      []Document `json:"documents"`
	TotalAvailable int        `json:"total_available"`
	// Fallback is true when the batch was substituted after a source failure
	Fallback bool `json:"fallback"`
}

// Query describes what to fetch
type Query struct {
	Brand        string
	MaxDocuments int
	DaysBack     int
}
