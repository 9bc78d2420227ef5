package history

import (
	"context"

	"github.com/scttfrdmn/chatmem/chatmem"
)

// SlidingWindow keeps the most recent k messages, dropping the oldest
// first. It never calls the LLM.
//
// A window of k <= 0 yields a history that is always empty after any
// append.
type SlidingWindow struct {
	window   int
	messages []*chatmem.Message
}

var _ History = (*SlidingWindow)(nil)

// NewSlidingWindow creates an empty sliding-window history keeping the last
// window messages.
func NewSlidingWindow(window int) *SlidingWindow {
	return &SlidingWindow{window: window}
}

// Append extends the history, then truncates to the last window messages.
func (h *SlidingWindow) Append(_ context.Context, _ Recorder, messages ...*chatmem.Message) error {
	h.messages = append(h.messages, messages...)
	if h.window <= 0 {
		h.messages = nil
		return nil
	}
	if len(h.messages) > h.window {
		h.messages = h.messages[len(h.messages)-h.window:]
	}
	return nil
}

// Messages returns the retained suffix, oldest first.
func (h *SlidingWindow) Messages() []*chatmem.Message {
	out := make([]*chatmem.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Clear empties the history.
func (h *SlidingWindow) Clear() {
	h.messages = nil
}
