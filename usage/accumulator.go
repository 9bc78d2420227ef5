// Package usage accumulates token usage across the LLM calls of one
// logical operation, typically a single chat turn.
package usage

import (
	"fmt"
	"sync"

	"github.com/scttfrdmn/chatmem/chatmem"
)

// Snapshot is a point-in-time copy of an accumulator's totals.
type Snapshot struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	Calls            int `json:"calls"`
}

// String formats the snapshot the way the usage panel displays it.
func (s Snapshot) String() string {
	return fmt.Sprintf("Tokens Used: %d (prompt: %d, completion: %d) over %d calls",
		s.TotalTokens, s.PromptTokens, s.CompletionTokens, s.Calls)
}

// Accumulator sums prompt/completion/total token counts and a call count
// across one or more LLM invocations.
//
// One accumulator is scoped to one logical unit of work; create a fresh one
// per turn rather than sharing across unrelated operations. Safe for
// concurrent use.
//
// A call that reported no usage metadata contributes zero tokens and does
// NOT increment the call count: the counter answers "how many calls do
// these totals cover", not "how many calls were made". Callers that need
// the latter must count separately.
type Accumulator struct {
	mu               sync.Mutex
	promptTokens     int
	completionTokens int
	totalTokens      int
	calls            int
}

// NewAccumulator creates a zeroed accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Record adds one call's usage to the running totals. A nil usage is a
// no-op (see the call-count rule above).
func (a *Accumulator) Record(u *chatmem.Usage) {
	if u == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.promptTokens += u.PromptTokens
	a.completionTokens += u.CompletionTokens
	a.totalTokens += u.TotalTokens
	a.calls++
}

// RecordMessage extracts the usage an LLM adapter attached to a response
// message and records it. Messages without usage metadata are ignored.
func (a *Accumulator) RecordMessage(m *chatmem.Message) {
	a.Record(chatmem.UsageFromMessage(m))
}

// Snapshot returns the current totals without resetting them.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		PromptTokens:     a.promptTokens,
		CompletionTokens: a.completionTokens,
		TotalTokens:      a.totalTokens,
		Calls:            a.calls,
	}
}

// Reset zeroes all counters.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.promptTokens = 0
	a.completionTokens = 0
	a.totalTokens = 0
	a.calls = 0
}
