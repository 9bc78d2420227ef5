package llm

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/scttfrdmn/chatmem/chatmem"
	"google.golang.org/api/option"
)

// GeminiClient is an adapter for Google's Gemini models.
//
// Wraps the Google GenAI SDK. Usage metadata from the API
// (prompt_token_count / candidates_token_count / total_token_count) is
// normalized into chatmem.Usage on every completion.
//
// Example:
//
//	client, err := llm.NewGeminiClient(ctx, "", "gemini-2.0-flash")
//	reply, err := client.Complete(ctx, messages, llm.WithTemperature(0.7))
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini adapter.
//
// An empty apiKey falls back to GEMINI_API_KEY, then GOOGLE_API_KEY. An
// empty model defaults to gemini-2.0-flash.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini api key required: provide apiKey or set GEMINI_API_KEY or GOOGLE_API_KEY")
		}
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Model returns the model identifier.
func (g *GeminiClient) Model() string {
	return g.model
}

// Close releases the underlying API client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Complete generates a completion from Gemini.
func (g *GeminiClient) Complete(ctx context.Context, messages []*chatmem.Message, opts ...CallOption) (*chatmem.Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("gemini requires at least one message")
	}
	options := BuildCallOptions(opts...)

	model := g.client.GenerativeModel(g.model)
	g.configureModel(model, options)

	history, lastParts := g.convertMessages(messages)
	session := model.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, lastParts...)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}

	response := chatmem.NewMessage(chatmem.RoleAssistant, extractGeminiContent(resp))
	response.Metadata["model"] = g.model
	if resp.UsageMetadata != nil {
		chatmem.AttachUsage(response, &chatmem.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		})
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != 0 {
		response.Metadata["finish_reason"] = resp.Candidates[0].FinishReason.String()
	}
	return response, nil
}

// convertMessages converts chatmem messages to Gemini chat format.
//
// Gemini has no system role in chat history; system messages are folded in
// as user-role content. The final message becomes the outgoing parts.
func (g *GeminiClient) convertMessages(messages []*chatmem.Message) ([]*genai.Content, []genai.Part) {
	var history []*genai.Content
	for i := 0; i < len(messages)-1; i++ {
		msg := messages[i]
		history = append(history, &genai.Content{
			Role:  geminiRole(msg.Role),
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	last := messages[len(messages)-1]
	return history, []genai.Part{genai.Text(last.Content)}
}

func geminiRole(role chatmem.Role) string {
	switch role {
	case chatmem.RoleAssistant:
		return "model"
	default:
		return "user"
	}
}

// configureModel applies call options to the generative model.
func (g *GeminiClient) configureModel(model *genai.GenerativeModel, options *CallOptions) {
	if options.Temperature != nil {
		temp := float32(*options.Temperature)
		model.Temperature = &temp
	}
	if options.MaxTokens != nil {
		maxTokens := int32(*options.MaxTokens)
		model.MaxOutputTokens = &maxTokens
	}
	if options.TopP != nil {
		topP := float32(*options.TopP)
		model.TopP = &topP
	}
	if topK, ok := options.Extra["top_k"].(int); ok {
		k := int32(topK)
		model.TopK = &k
	}
	if stop, ok := options.Extra["stop_sequences"].([]string); ok {
		model.StopSequences = stop
	}
}

func extractGeminiContent(resp *genai.GenerateContentResponse) string {
	var content string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content += string(text)
			}
		}
	}
	return content
}
