// Package history provides the interchangeable history-management policies
// that decide what subset of a conversation is kept as LLM context.
//
// Four policies share one contract:
//   - Unbounded: keep everything verbatim
//   - SlidingWindow: keep the last k messages
//   - RecursiveSummary: keep a single running summary
//   - SummaryWindow: keep the last k messages plus a running summary of
//     everything older
//
// Policies are designed for sequential access: callers must serialize
// Append/Messages/Clear on one instance (the chat orchestrator owns a
// per-session lock). Distinct instances are independent.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/scttfrdmn/chatmem/chatmem"
	"github.com/scttfrdmn/chatmem/llm"
)

// Recorder receives the response of every LLM call a policy makes during
// compaction, so token accounting stays visible to whatever accumulator is
// active for the caller's operation. A nil Recorder is allowed.
type Recorder interface {
	RecordMessage(m *chatmem.Message)
}

// History is the common contract of all policies.
type History interface {
	// Append adds new turns, then applies the policy's retention rule.
	// Summarizing policies may issue LLM calls; their responses are
	// reported to rec. On an LLM failure the policy keeps a lossless
	// state (verbatim messages retained) and returns the error.
	Append(ctx context.Context, rec Recorder, messages ...*chatmem.Message) error

	// Messages returns the current context to send to the LLM, oldest
	// first. A summary message, if present, is always the first element.
	// The returned slice is the caller's to keep.
	Messages() []*chatmem.Message

	// Clear resets the history to empty with no summary.
	Clear()
}

// Kind enumerates the closed set of history policies.
type Kind string

const (
	KindUnbounded        Kind = "unbounded"
	KindSlidingWindow    Kind = "sliding_window"
	KindRecursiveSummary Kind = "recursive_summary"
	KindSummaryWindow    Kind = "summary_window"
)

// ErrUnknownKind is returned by New for a kind outside the enumerated set.
// This is caller misuse and fails fast rather than defaulting.
var ErrUnknownKind = errors.New("unknown history policy kind")

// Valid reports whether k names one of the four policies.
func (k Kind) Valid() bool {
	switch k {
	case KindUnbounded, KindSlidingWindow, KindRecursiveSummary, KindSummaryWindow:
		return true
	}
	return false
}

// New constructs an empty policy of the given kind. The client is required
// only by the summarizing kinds; window applies to the windowed kinds.
func New(kind Kind, client llm.Client, window int) (History, error) {
	switch kind {
	case KindUnbounded:
		return NewUnbounded(), nil
	case KindSlidingWindow:
		return NewSlidingWindow(window), nil
	case KindRecursiveSummary:
		return NewRecursiveSummary(client), nil
	case KindSummaryWindow:
		return NewSummaryWindow(client, window), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
