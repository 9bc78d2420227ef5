package history

import (
	"context"

	"github.com/scttfrdmn/chatmem/chatmem"
	"github.com/scttfrdmn/chatmem/llm"
)

// SummaryWindow keeps the last window verbatim messages plus a running
// summary of everything older. The summary message does not count toward
// the window and, when present, is always the first element.
//
// At most one LLM call per append, and only when the window overflowed.
// When the window did not overflow, an existing summary is re-prepended
// unchanged; it is not recomputed to cover the newly kept messages.
type SummaryWindow struct {
	client   llm.Client
	window   int
	messages []*chatmem.Message
}

var _ History = (*SummaryWindow)(nil)

// NewSummaryWindow creates an empty summary-window history keeping the last
// window verbatim messages.
func NewSummaryWindow(client llm.Client, window int) *SummaryWindow {
	return &SummaryWindow{client: client, window: window}
}

// Append adds new turns, trims the verbatim window, and folds any overflow
// into the summary.
//
// The boundary is strict: a verbatim sequence of exactly window messages
// does not overflow. On summarization failure the previous summary and the
// overflow are restored in order, so no message is lost.
func (h *SummaryWindow) Append(ctx context.Context, rec Recorder, messages ...*chatmem.Message) error {
	// Detach an existing summary; it does not count toward the window.
	var existing *chatmem.Message
	rest := h.messages
	if len(rest) > 0 && rest[0].Role == chatmem.RoleSystem {
		existing = rest[0]
		rest = rest[1:]
	}

	rest = append(rest, messages...)

	var overflow []*chatmem.Message
	if len(rest) > h.window {
		if h.window <= 0 {
			overflow, rest = rest, nil
		} else {
			overflow = rest[:len(rest)-h.window]
			rest = rest[len(rest)-h.window:]
		}
	}

	if overflow == nil {
		// Nothing to fold in; keep the old summary as-is.
		h.messages = prepend(existing, rest)
		return nil
	}

	existingText := ""
	if existing != nil {
		existingText = existing.Content
	}
	summary, err := summarize(ctx, h.client, rec, existingText, overflow)
	if err != nil {
		// Restore a lossless layout: old summary, then the messages that
		// would have been folded in, then the kept window.
		restored := make([]*chatmem.Message, 0, len(overflow)+len(rest))
		restored = append(restored, overflow...)
		restored = append(restored, rest...)
		h.messages = prepend(existing, restored)
		return err
	}

	h.messages = prepend(summary, rest)
	return nil
}

// Messages returns the summary (if any) followed by the verbatim window.
func (h *SummaryWindow) Messages() []*chatmem.Message {
	out := make([]*chatmem.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Clear empties the history, discarding the summary.
func (h *SummaryWindow) Clear() {
	h.messages = nil
}

func prepend(head *chatmem.Message, tail []*chatmem.Message) []*chatmem.Message {
	if head == nil {
		return tail
	}
	out := make([]*chatmem.Message, 0, len(tail)+1)
	out = append(out, head)
	return append(out, tail...)
}
