package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts prompt tokens
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with the model's BPE, falling back to cl100k_base.
// When no encoding can be loaded it estimates four characters per token.
type TiktokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for model; encodings load lazily
func NewTiktokenCounter(model string) *TiktokenCounter {
	return &TiktokenCounter{model: model}
}

// Count returns the token count of text
func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				return
			}
		}
		c.enc = enc
	})
	if c.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Budget fits a list of prompt sections into a token limit
type Budget struct {
	counter TokenCounter
	limit   int
}

// NewBudget creates a budget; a non-positive limit means unbounded
func NewBudget(counter TokenCounter, limit int) *Budget {
	return &Budget{counter: counter, limit: limit}
}

// Fit returns the longest prefix of items whose combined token count,
// plus the fixed overhead, stays within the limit. Items keep their order.
func (b *Budget) Fit(overhead string, items []string) []string {
	if b.limit <= 0 {
		return items
	}

	used := b.counter.Count(overhead)
	for i, item := range items {
		used += b.counter.Count(item)
		if used > b.limit {
			return items[:i]
		}
	}
	return items
}
