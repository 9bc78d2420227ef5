package middleware

import (
	"context"
	"time"

	"github.com/scttfrdmn/chatmem/chatmem"
	"github.com/scttfrdmn/chatmem/llm"
)

// TimeoutClient wraps an LLM client with a per-call deadline, so one slow
// provider call cannot hold a chat turn open indefinitely.
type TimeoutClient struct {
	client  llm.Client
	timeout time.Duration
}

var _ llm.Client = (*TimeoutClient)(nil)

// NewTimeoutClient creates a timeout wrapper around client. A
// non-positive timeout defaults to 30 seconds.
func NewTimeoutClient(client llm.Client, timeout time.Duration) *TimeoutClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TimeoutClient{client: client, timeout: timeout}
}

// Model returns the wrapped client's model identifier.
func (t *TimeoutClient) Model() string {
	return t.client.Model()
}

// Complete implements llm.Client with a call deadline.
func (t *TimeoutClient) Complete(ctx context.Context, messages []*chatmem.Message, opts ...llm.CallOption) (*chatmem.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.client.Complete(ctx, messages, opts...)
}
