// Package llm defines the contract for chat completion providers.
//
// The pipeline uses completions in a strictly request/response fashion: one
// prompt in, one text body out, which the caller then decodes as JSON.
// Implementations live in subpackages (openai, anyllm) plus a recording
// test double under mock.
package llm

import "context"

// Role identifies the author of a [Message].
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest describes one completion call.
type CompletionRequest struct {
	// SystemPrompt, when non-empty, is prepended as a system message.
	SystemPrompt string

	// Messages is the conversation to complete, oldest first.
	Messages []Message

	// Temperature controls sampling randomness. Zero means provider default.
	Temperature float64

	// MaxTokens bounds the completion length. Zero means provider default.
	MaxTokens int
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the result of a completion call.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage is the provider-reported token usage, when available.
	Usage Usage
}

// Provider is a chat completion backend.
//
// Implementations must honor ctx cancellation and classify failures with
// pkg/fault kinds: auth for rejected credentials, transport for network and
// server errors.
type Provider interface {
	// Complete performs a single blocking completion.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// ModelID returns the configured model identifier, for logging.
	ModelID() string
}
