// Package middleware provides reusable decorators for LLM clients.
package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/scttfrdmn/chatmem/chatmem"
	"github.com/scttfrdmn/chatmem/llm"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, the initial attempt
	// included. Default: 3.
	MaxAttempts int

	// InitialBackoff is the initial backoff duration. Default: 100ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration. Default: 10s.
	MaxBackoff time.Duration

	// BackoffMultiplier is the exponential backoff multiplier. Default: 2.
	BackoffMultiplier float64

	// ShouldRetry decides whether an error triggers a retry. Nil retries
	// every error.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig returns a retry config with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryClient wraps an LLM client with exponential-backoff retries.
// Usage metadata of the successful attempt passes through untouched.
type RetryClient struct {
	client llm.Client
	config RetryConfig
}

var _ llm.Client = (*RetryClient)(nil)

// NewRetryClient creates a retrying wrapper around client.
func NewRetryClient(client llm.Client, config RetryConfig) *RetryClient {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 10 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	return &RetryClient{client: client, config: config}
}

// Model returns the wrapped client's model identifier.
func (r *RetryClient) Model() string {
	return r.client.Model()
}

// Complete implements llm.Client with retry logic.
func (r *RetryClient) Complete(ctx context.Context, messages []*chatmem.Message, opts ...llm.CallOption) (*chatmem.Message, error) {
	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		response, err := r.client.Complete(ctx, messages, opts...)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if r.config.ShouldRetry != nil && !r.config.ShouldRetry(err) {
			return nil, err
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * r.config.BackoffMultiplier)
		if backoff > r.config.MaxBackoff {
			backoff = r.config.MaxBackoff
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", r.config.MaxAttempts, lastErr)
}
