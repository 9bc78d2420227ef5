package history

import (
	"context"

	"github.com/scttfrdmn/chatmem/chatmem"
	"github.com/scttfrdmn/chatmem/llm"
)

// RecursiveSummary collapses the whole conversation into one running
// summary. Every append replaces the entire history with a fresh system
// message summarizing the full sequence so far, prior summary included.
//
// This is lossy by design: verbatim detail degrades with each compaction.
// One LLM call per append.
type RecursiveSummary struct {
	client   llm.Client
	messages []*chatmem.Message
}

var _ History = (*RecursiveSummary)(nil)

// NewRecursiveSummary creates an empty recursive-summary history.
func NewRecursiveSummary(client llm.Client) *RecursiveSummary {
	return &RecursiveSummary{client: client}
}

// Append extends the sequence, then replaces it with a single summary
// message. On summarization failure the extended verbatim sequence is kept
// and the error returned; nothing is lost.
func (h *RecursiveSummary) Append(ctx context.Context, rec Recorder, messages ...*chatmem.Message) error {
	existing := RenderTranscript(h.messages)
	h.messages = append(h.messages, messages...)

	summary, err := summarize(ctx, h.client, rec, existing, messages)
	if err != nil {
		return err
	}
	h.messages = []*chatmem.Message{summary}
	return nil
}

// Messages returns the current state: one system summary message, or the
// uncompacted sequence if the last compaction failed.
func (h *RecursiveSummary) Messages() []*chatmem.Message {
	out := make([]*chatmem.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Clear empties the history, discarding the summary.
func (h *RecursiveSummary) Clear() {
	h.messages = nil
}
