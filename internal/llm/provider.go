package llm

import (
	"context"
	"time"
)

// SystemInstruction is the fixed system message sent with every
// classification request.
const SystemInstruction = "Classify quickly and accurately. Respond with only the category name."

// Request is a single remote classification call
type Request struct {
	// Model is the provider-specific model identifier
	Model string

	// Prompt is the constructed user prompt
	Prompt string

	Temperature float32
	MaxTokens   int

	// Timeout bounds the call; 0 uses the provider default
	Timeout time.Duration
}

// Response is the provider's raw answer
type Response struct {
	// Content is the first choice's message content, trimmed
	Content string

	// CompletionTokens is the reported completion usage (0 if unavailable),
	// used for cost estimation only
	CompletionTokens int
}

// Provider defines the interface for remote classification endpoints
type Provider interface {
	// Name returns the provider name
	Name() string

	// Classify sends one classification request and returns the raw response
	Classify(ctx context.Context, req Request) (*Response, error)
}
