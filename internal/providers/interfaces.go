package providers

import "context"

type ProviderInfo struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	Profile string `json:"profile"`
}

// ContentPart is one element of a multi-part user message. Exactly one of
// Text and ImageURL is set.
type ContentPart struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type ChatRequest struct {
	Operation   string        `json:"operation"`
	System      string        `json:"system"`
	User        []ContentPart `json:"user"`
	Count       int           `json:"count"`
	Temperature float32       `json:"temperature"`
}

// LLMProvider performs one chat completion and returns the raw assistant text.
type LLMProvider interface {
	Complete(ctx context.Context, req ChatRequest) (string, ProviderInfo, error)
}
