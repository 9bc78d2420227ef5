package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/scttfrdmn/chatmem/chatmem"
)

// OpenAIClient is an adapter for OpenAI's GPT models.
//
// Wraps the go-openai SDK. Every completion carries the usage the API
// reported, so accumulators see exact per-call token counts.
//
// Example:
//
//	client := llm.NewOpenAIClient("sk-...", "gpt-4o")
//	reply, err := client.Complete(ctx, messages, llm.WithTemperature(0.7))
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI adapter.
//
// An empty apiKey falls back to the OPENAI_API_KEY environment variable
// (handled by the SDK). An empty model defaults to gpt-4o.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Model returns the model identifier.
func (o *OpenAIClient) Model() string {
	return o.model
}

// Complete generates a completion from GPT.
func (o *OpenAIClient) Complete(ctx context.Context, messages []*chatmem.Message, opts ...CallOption) (*chatmem.Message, error) {
	options := BuildCallOptions(opts...)

	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: o.convertMessages(messages),
	}
	if options.Temperature != nil {
		req.Temperature = float32(*options.Temperature)
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = float32(*options.TopP)
	}
	if stop, ok := options.Extra["stop"].([]string); ok {
		req.Stop = stop
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	response := chatmem.NewMessage(chatmem.RoleAssistant, resp.Choices[0].Message.Content)
	response.Metadata["model"] = resp.Model
	response.Metadata["finish_reason"] = resp.Choices[0].FinishReason
	chatmem.AttachUsage(response, &chatmem.Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	})
	return response, nil
}

// convertMessages converts chatmem messages to OpenAI chat format.
func (o *OpenAIClient) convertMessages(messages []*chatmem.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		var role string
		switch msg.Role {
		case chatmem.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case chatmem.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		default:
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return out
}
