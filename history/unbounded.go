package history

import (
	"context"

	"github.com/scttfrdmn/chatmem/chatmem"
)

// Unbounded keeps the full conversation verbatim. It never trims and never
// calls the LLM.
type Unbounded struct {
	messages []*chatmem.Message
}

var _ History = (*Unbounded)(nil)

// NewUnbounded creates an empty unbounded history.
func NewUnbounded() *Unbounded {
	return &Unbounded{}
}

// Append extends the history with no retention rule.
func (h *Unbounded) Append(_ context.Context, _ Recorder, messages ...*chatmem.Message) error {
	h.messages = append(h.messages, messages...)
	return nil
}

// Messages returns the full sequence.
func (h *Unbounded) Messages() []*chatmem.Message {
	out := make([]*chatmem.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Clear empties the history.
func (h *Unbounded) Clear() {
	h.messages = nil
}
