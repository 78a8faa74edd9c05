package providers

import (
	"context"
	"fmt"
	"io"

	"github.com/prdforge/prdforge/internal/llm"
	openrouter "github.com/revrost/go-openrouter"
)

// OpenRouterSDKHandler implements the ApiHandler interface using the official OpenRouter Go SDK.
type OpenRouterSDKHandler struct {
	options llm.ApiHandlerOptions
	client  *openrouter.Client
}

// NewOpenRouterSDKHandler creates a new OpenRouter handler using the official SDK.
func NewOpenRouterSDKHandler(options llm.ApiHandlerOptions) *OpenRouterSDKHandler {
	client := openrouter.NewClient(options.APIKey)

	return &OpenRouterSDKHandler{
		options: options,
		client:  client,
	}
}

func (h *OpenRouterSDKHandler) ModelID() string {
	return h.options.ModelID
}

// CreateMessage sends a conversation to OpenRouter and returns a streaming response.
func (h *OpenRouterSDKHandler) CreateMessage(ctx context.Context, systemPrompt string, messages []llm.Message) (llm.ApiStream, error) {
	openrouterMessages := make([]openrouter.ChatCompletionMessage, 0, len(messages)+1)

	if systemPrompt != "" {
		openrouterMessages = append(openrouterMessages, openrouter.ChatCompletionMessage{
			Role:    openrouter.ChatMessageRoleSystem,
			Content: openrouter.Content{Text: systemPrompt},
		})
	}

	for _, msg := range messages {
		openrouterMessages = append(openrouterMessages, openrouter.ChatCompletionMessage{
			Role:    convertRoleToOpenRouter(msg.Role),
			Content: openrouter.Content{Text: msg.Content},
		})
	}

	request := openrouter.ChatCompletionRequest{
		Model:    h.options.ModelID,
		Messages: openrouterMessages,
		Stream:   true,
	}
	if h.options.MaxTokens > 0 {
		request.MaxTokens = h.options.MaxTokens
	}

	stream, err := h.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	outputChan := make(chan llm.ApiStreamChunk, 100)

	go func() {
		defer close(outputChan)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				if err == io.EOF {
					return
				}
				outputChan <- llm.ApiStreamErrorChunk{Err: err}
				return
			}

			for _, choice := range response.Choices {
				if choice.Delta.Content != "" {
					outputChan <- llm.ApiStreamTextChunk{Text: choice.Delta.Content}
				}
			}
		}
	}()

	return outputChan, nil
}

func convertRoleToOpenRouter(role string) string {
	switch role {
	case "assistant":
		return openrouter.ChatMessageRoleAssistant
	case "system":
		return openrouter.ChatMessageRoleSystem
	default:
		return openrouter.ChatMessageRoleUser
	}
}
