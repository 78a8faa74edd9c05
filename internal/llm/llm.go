package llm

import (
	"context"
	"strings"
)

// Message represents one turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ApiStream represents a stream of response chunks from a provider.
type ApiStream <-chan ApiStreamChunk

// ApiStreamChunk represents different types of streaming responses.
type ApiStreamChunk interface {
	Type() string
}

// ApiStreamTextChunk represents text content in the stream.
type ApiStreamTextChunk struct {
	Text string `json:"text"`
}

func (c ApiStreamTextChunk) Type() string { return "text" }

// ApiStreamUsageChunk represents token usage information.
type ApiStreamUsageChunk struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

func (c ApiStreamUsageChunk) Type() string { return "usage" }

// ApiStreamErrorChunk reports a provider-side failure after streaming has
// begun. The stream is closed immediately after it is delivered.
type ApiStreamErrorChunk struct {
	Err error `json:"-"`
}

func (c ApiStreamErrorChunk) Type() string { return "error" }

// ApiHandler is the core interface implemented by LLM providers.
type ApiHandler interface {
	// CreateMessage sends a conversation and returns a streaming response.
	CreateMessage(ctx context.Context, systemPrompt string, messages []Message) (ApiStream, error)

	// ModelID returns the model identifier used by this handler.
	ModelID() string
}

// ApiHandlerOptions configures a provider handler.
type ApiHandlerOptions struct {
	APIKey  string `json:"apiKey"`
	ModelID string `json:"modelId"`
	BaseURL string `json:"baseUrl,omitempty"`

	// MaxTokens caps the completion length; zero means provider default.
	MaxTokens int `json:"maxTokens,omitempty"`
}

// CollectText drains a stream and returns the concatenated text content.
// The first error chunk aborts collection.
func CollectText(stream ApiStream) (string, error) {
	var sb strings.Builder
	for chunk := range stream {
		switch c := chunk.(type) {
		case ApiStreamTextChunk:
			sb.WriteString(c.Text)
		case ApiStreamErrorChunk:
			return sb.String(), c.Err
		}
	}
	return sb.String(), nil
}
