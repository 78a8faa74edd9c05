package providers

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/prdforge/prdforge/internal/llm"
)

// OpenAISDKHandler implements the ApiHandler interface using the official OpenAI Go SDK.
type OpenAISDKHandler struct {
	options llm.ApiHandlerOptions
	client  *openai.Client
}

// NewOpenAISDKHandler creates a new OpenAI handler using the official SDK.
func NewOpenAISDKHandler(options llm.ApiHandlerOptions) *OpenAISDKHandler {
	opts := []option.RequestOption{option.WithAPIKey(options.APIKey)}
	if options.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(options.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &OpenAISDKHandler{
		options: options,
		client:  &client,
	}
}

func (h *OpenAISDKHandler) ModelID() string {
	return h.options.ModelID
}

// CreateMessage sends a conversation to OpenAI and returns a streaming response.
func (h *OpenAISDKHandler) CreateMessage(ctx context.Context, systemPrompt string, messages []llm.Message) (llm.ApiStream, error) {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)

	if systemPrompt != "" {
		openaiMessages = append(openaiMessages, openai.SystemMessage(systemPrompt))
	}

	for _, msg := range messages {
		switch msg.Role {
		case "assistant":
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		case "system":
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: openaiMessages,
		Model:    openai.ChatModel(h.options.ModelID),
	}
	if h.options.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(h.options.MaxTokens))
	}

	stream := h.client.Chat.Completions.NewStreaming(ctx, params)

	outputChan := make(chan llm.ApiStreamChunk, 100)

	go func() {
		defer close(outputChan)

		for stream.Next() {
			evt := stream.Current()
			if len(evt.Choices) > 0 {
				content := evt.Choices[0].Delta.Content
				if content != "" {
					outputChan <- llm.ApiStreamTextChunk{Text: content}
				}
			}
			if evt.Usage.TotalTokens > 0 {
				outputChan <- llm.ApiStreamUsageChunk{
					InputTokens:  int(evt.Usage.PromptTokens),
					OutputTokens: int(evt.Usage.CompletionTokens),
				}
			}
		}

		if err := stream.Err(); err != nil {
			outputChan <- llm.ApiStreamErrorChunk{Err: err}
		}
	}()

	return outputChan, nil
}
