// Package llm provides the minimal LLM client contract consumed by the
// history policies and the chat orchestrator, plus adapters for OpenAI,
// Gemini, and Amazon Bedrock.
//
// The interface is intentionally small: the rest of the module treats the
// model as an opaque capability that turns an ordered message sequence into
// one assistant message, reporting token usage per call when the provider
// makes it available.
package llm

import (
	"context"

	"github.com/scttfrdmn/chatmem/chatmem"
)

// Client is the minimal interface for LLM interaction.
//
// Complete must be safe to invoke several times within one logical turn:
// the orchestrator issues the main generation call and the summarizing
// history policies may issue additional compaction calls. Adapters attach
// per-call token usage to the response message under
// chatmem.UsageMetadataKey when the provider reports it.
//
// Example:
//
//	client := llm.NewOpenAIClient("", "gpt-4o")
//	reply, err := client.Complete(ctx, messages, llm.WithTemperature(0.7))
type Client interface {
	// Complete generates a single assistant message from the given context.
	Complete(ctx context.Context, messages []*chatmem.Message, opts ...CallOption) (*chatmem.Message, error)

	// Model returns the model identifier this client targets.
	Model() string
}

// CallOptions holds per-call generation options.
type CallOptions struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64

	// Extra carries provider-specific options.
	Extra map[string]interface{}
}

// CallOption is a functional option for configuring a Complete call.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) CallOption {
	return func(opts *CallOptions) {
		opts.Temperature = &temperature
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(maxTokens int) CallOption {
	return func(opts *CallOptions) {
		opts.MaxTokens = &maxTokens
	}
}

// WithTopP sets the nucleus sampling parameter.
func WithTopP(topP float64) CallOption {
	return func(opts *CallOptions) {
		opts.TopP = &topP
	}
}

// WithExtra adds a provider-specific option.
func WithExtra(key string, value interface{}) CallOption {
	return func(opts *CallOptions) {
		if opts.Extra == nil {
			opts.Extra = make(map[string]interface{})
		}
		opts.Extra[key] = value
	}
}

// BuildCallOptions creates CallOptions from functional options.
func BuildCallOptions(opts ...CallOption) *CallOptions {
	options := &CallOptions{
		Extra: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
