package llm

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts prompt tokens for cost estimation. When the model's
// encoding is unavailable (unknown model, offline environment) it degrades to
// a bytes/4 heuristic rather than failing the run.
type TokenCounter struct {
	model    string
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a token counter for the given model
func NewTokenCounter(model string) *TokenCounter {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, _ = tiktoken.GetEncoding("cl100k_base")
	}

	return &TokenCounter{
		model:    model,
		encoding: encoding,
	}
}

// Count returns the token count of text
func (t *TokenCounter) Count(text string) int {
	if t.encoding == nil {
		return (len(text) + 3) / 4
	}
	return len(t.encoding.Encode(text, nil, nil))
}
