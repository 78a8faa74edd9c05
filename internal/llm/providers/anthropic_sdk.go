package providers

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/prdforge/prdforge/internal/llm"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicSDKHandler implements the ApiHandler interface using the official Anthropic SDK.
type AnthropicSDKHandler struct {
	options llm.ApiHandlerOptions
	client  *anthropic.Client
}

// NewAnthropicSDKHandler creates a new Anthropic handler using the official SDK.
func NewAnthropicSDKHandler(options llm.ApiHandlerOptions) *AnthropicSDKHandler {
	opts := []option.RequestOption{option.WithAPIKey(options.APIKey)}
	if options.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(options.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicSDKHandler{
		options: options,
		client:  &client,
	}
}

func (h *AnthropicSDKHandler) ModelID() string {
	return h.options.ModelID
}

// CreateMessage sends a conversation to Anthropic and returns a streaming response.
func (h *AnthropicSDKHandler) CreateMessage(ctx context.Context, systemPrompt string, messages []llm.Message) (llm.ApiStream, error) {
	anthropicMessages := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			anthropicMessages = append(anthropicMessages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case "system":
			// System turns beyond the instruction template become prefixed
			// user turns; the Anthropic API takes a single system field.
			anthropicMessages = append(anthropicMessages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf("System: %s", msg.Content))))
		default:
			anthropicMessages = append(anthropicMessages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	maxTokens := h.options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  anthropicMessages,
		Model:     anthropic.Model(h.options.ModelID),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	stream := h.client.Messages.NewStreaming(ctx, params)

	outputChan := make(chan llm.ApiStreamChunk, 100)

	go func() {
		defer close(outputChan)
		defer stream.Close()

		for stream.Next() {
			event := stream.Current()

			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					outputChan <- llm.ApiStreamTextChunk{Text: deltaVariant.Text}
				}
			case anthropic.MessageDeltaEvent:
				if eventVariant.Usage.OutputTokens > 0 {
					outputChan <- llm.ApiStreamUsageChunk{
						OutputTokens: int(eventVariant.Usage.OutputTokens),
					}
				}
			case anthropic.MessageStopEvent:
				return
			}
		}

		if err := stream.Err(); err != nil {
			outputChan <- llm.ApiStreamErrorChunk{Err: err}
		}
	}()

	return outputChan, nil
}
