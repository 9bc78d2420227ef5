package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/scttfrdmn/chatmem/chatmem"
	"github.com/scttfrdmn/chatmem/llm"
)

// fakeClient is a scripted LLM for policy tests. Each Complete call
// returns the next reply (or "summary" when the script runs out) and
// records the prompt it was given.
type fakeClient struct {
	replies []string
	err     error
	usage   *chatmem.Usage
	calls   [][]*chatmem.Message
}

func (f *fakeClient) Complete(_ context.Context, messages []*chatmem.Message, _ ...llm.CallOption) (*chatmem.Message, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return nil, f.err
	}
	content := "summary"
	if len(f.replies) > 0 {
		content = f.replies[0]
		f.replies = f.replies[1:]
	}
	m := chatmem.NewMessage(chatmem.RoleAssistant, content)
	if f.usage != nil {
		u := *f.usage
		chatmem.AttachUsage(m, &u)
	}
	return m, nil
}

func (f *fakeClient) Model() string { return "fake-model" }

// countingRecorder counts recorded LLM responses.
type countingRecorder struct {
	recorded []*chatmem.Message
}

func (r *countingRecorder) RecordMessage(m *chatmem.Message) {
	r.recorded = append(r.recorded, m)
}

func userMsg(content string) *chatmem.Message {
	return chatmem.NewMessage(chatmem.RoleUser, content)
}

func assistantMsg(content string) *chatmem.Message {
	return chatmem.NewMessage(chatmem.RoleAssistant, content)
}

func contents(messages []*chatmem.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}

func TestUnbounded(t *testing.T) {
	ctx := context.Background()
	h := NewUnbounded()

	for i := 0; i < 5; i++ {
		if err := h.Append(ctx, nil, userMsg(fmt.Sprintf("msg-%d", i))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	msgs := h.Messages()
	if len(msgs) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("msg-%d", i); m.Content != want {
			t.Errorf("Expected %q at index %d, got %q", want, i, m.Content)
		}
	}

	h.Clear()
	if len(h.Messages()) != 0 {
		t.Error("Expected empty history after Clear")
	}
}

func TestSlidingWindow(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		window int
		append []string
		want   []string
	}{
		{
			name:   "under window",
			window: 5,
			append: []string{"a", "b", "c"},
			want:   []string{"a", "b", "c"},
		},
		{
			name:   "exactly window",
			window: 3,
			append: []string{"a", "b", "c"},
			want:   []string{"a", "b", "c"},
		},
		{
			name:   "over window keeps suffix",
			window: 2,
			append: []string{"a", "b", "c", "d"},
			want:   []string{"c", "d"},
		},
		{
			name:   "zero window always empty",
			window: 0,
			append: []string{"a", "b"},
			want:   []string{},
		},
		{
			name:   "negative window always empty",
			window: -1,
			append: []string{"a"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSlidingWindow(tt.window)
			for _, c := range tt.append {
				if err := h.Append(ctx, nil, userMsg(c)); err != nil {
					t.Fatalf("Append failed: %v", err)
				}
				if tt.window >= 0 && len(h.Messages()) > tt.window {
					t.Errorf("History exceeds window: %d > %d", len(h.Messages()), tt.window)
				}
			}

			got := contents(h.Messages())
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestSlidingWindowScenario(t *testing.T) {
	// SlidingWindow(2): [hi, hello] then "bye" drops the oldest.
	ctx := context.Background()
	h := NewSlidingWindow(2)

	if err := h.Append(ctx, nil, userMsg("hi"), assistantMsg("hello")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	got := contents(h.Messages())
	if len(got) != 2 || got[0] != "hi" || got[1] != "hello" {
		t.Fatalf("Expected [hi hello], got %v", got)
	}

	if err := h.Append(ctx, nil, userMsg("bye")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	got = contents(h.Messages())
	if len(got) != 2 || got[0] != "hello" || got[1] != "bye" {
		t.Fatalf("Expected [hello bye], got %v", got)
	}
}

func TestRecursiveSummary(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{replies: []string{"S1", "S2"}}
	rec := &countingRecorder{}
	h := NewRecursiveSummary(client)

	if err := h.Append(ctx, rec, userMsg("user1"), assistantMsg("assistant1")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	msgs := h.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected exactly 1 message after append, got %d", len(msgs))
	}
	if msgs[0].Role != chatmem.RoleSystem {
		t.Errorf("Expected system role, got %q", msgs[0].Role)
	}
	if msgs[0].Content != "S1" {
		t.Errorf("Expected summary S1, got %q", msgs[0].Content)
	}

	// The second compaction prompt must carry the prior summary forward.
	if err := h.Append(ctx, rec, userMsg("user2"), assistantMsg("assistant2")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	msgs = h.Messages()
	if len(msgs) != 1 || msgs[0].Content != "S2" {
		t.Fatalf("Expected [S2], got %v", contents(msgs))
	}
	if len(client.calls) != 2 {
		t.Fatalf("Expected 2 LLM calls, got %d", len(client.calls))
	}
	secondPrompt := client.calls[1][1].Content
	if !strings.Contains(secondPrompt, "S1") {
		t.Errorf("Second compaction prompt should include prior summary S1, got:\n%s", secondPrompt)
	}
	if !strings.Contains(secondPrompt, "user2") {
		t.Errorf("Second compaction prompt should include new messages, got:\n%s", secondPrompt)
	}

	if len(rec.recorded) != 2 {
		t.Errorf("Expected 2 recorded compaction calls, got %d", len(rec.recorded))
	}
}

func TestRecursiveSummaryFailureKeepsVerbatim(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{err: errors.New("quota exceeded")}
	h := NewRecursiveSummary(client)

	err := h.Append(ctx, nil, userMsg("hello"))
	if err == nil {
		t.Fatal("Expected error from failed summarization")
	}

	// Nothing lost: the verbatim message survives the failure.
	got := contents(h.Messages())
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("Expected verbatim [hello] after failure, got %v", got)
	}
}

func TestSummaryWindowUnderWindow(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	h := NewSummaryWindow(client, 3)

	if err := h.Append(ctx, nil, userMsg("a"), assistantMsg("b"), userMsg("c")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// Exactly the window: strict boundary, no overflow, no summary.
	got := contents(h.Messages())
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Fatalf("Expected [a b c], got %v", got)
	}
	if len(client.calls) != 0 {
		t.Errorf("Expected no LLM calls without overflow, got %d", len(client.calls))
	}
}

func TestSummaryWindowOverflow(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{replies: []string{"S1"}}
	rec := &countingRecorder{}
	h := NewSummaryWindow(client, 2)

	if err := h.Append(ctx, rec, userMsg("a"), assistantMsg("b"), userMsg("c")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	msgs := h.Messages()
	if msgs[0].Role != chatmem.RoleSystem {
		t.Fatalf("Expected summary first, got role %q", msgs[0].Role)
	}
	if len(msgs)-1 > 2 {
		t.Errorf("Verbatim window exceeds k: %d", len(msgs)-1)
	}
	got := contents(msgs)
	if got[0] != "S1" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("Expected [S1 b c], got %v", got)
	}

	// Only "a" overflowed; the compaction prompt carries it with the
	// placeholder for the missing prior summary.
	if len(client.calls) != 1 {
		t.Fatalf("Expected 1 LLM call, got %d", len(client.calls))
	}
	prompt := client.calls[0][1].Content
	if !strings.Contains(prompt, "No previous summary") {
		t.Errorf("Expected placeholder in prompt, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "user: a") || strings.Contains(prompt, ": b") {
		t.Errorf("Prompt should summarize only the overflow, got:\n%s", prompt)
	}
	if len(rec.recorded) != 1 {
		t.Errorf("Expected 1 recorded compaction call, got %d", len(rec.recorded))
	}
}

func TestSummaryWindowKeepsDetachedSummaryWithoutOverflow(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{replies: []string{"S1"}}
	h := NewSummaryWindow(client, 2)

	// Force a summary into place.
	if err := h.Append(ctx, nil, userMsg("a"), assistantMsg("b"), userMsg("c")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if got := contents(h.Messages()); got[0] != "S1" {
		t.Fatalf("Expected summary S1 in place, got %v", got)
	}

	// An append that does not overflow must re-prepend the old summary
	// unchanged and make no further LLM call.
	if err := h.Append(ctx, nil); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got := contents(h.Messages())
	if len(got) != 3 || got[0] != "S1" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("Expected [S1 b c] with summary intact, got %v", got)
	}
	if len(client.calls) != 1 {
		t.Errorf("Expected no additional LLM call, got %d total", len(client.calls))
	}
}

func TestSummaryWindowCarriesSummaryForward(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{replies: []string{"S1", "S2"}}
	h := NewSummaryWindow(client, 1)

	if err := h.Append(ctx, nil, userMsg("a"), assistantMsg("b")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(ctx, nil, userMsg("c")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got := contents(h.Messages())
	if len(got) != 2 || got[0] != "S2" || got[1] != "c" {
		t.Fatalf("Expected [S2 c], got %v", got)
	}
	// The second compaction sees the existing summary, not the
	// placeholder.
	prompt := client.calls[1][1].Content
	if !strings.Contains(prompt, "S1") {
		t.Errorf("Expected prior summary S1 in prompt, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "No previous summary") {
		t.Errorf("Placeholder should not appear once a summary exists, got:\n%s", prompt)
	}
}

func TestSummaryWindowFailureRestoresState(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{replies: []string{"S1"}}
	h := NewSummaryWindow(client, 2)

	if err := h.Append(ctx, nil, userMsg("a"), assistantMsg("b"), userMsg("c")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	client.err = errors.New("network down")
	err := h.Append(ctx, nil, userMsg("d"), assistantMsg("e"))
	if err == nil {
		t.Fatal("Expected error from failed summarization")
	}

	// Lossless restore: old summary first, then everything verbatim.
	got := contents(h.Messages())
	want := []string{"S1", "b", "c", "d", "e"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
	if h.Messages()[0].Role != chatmem.RoleSystem {
		t.Error("Expected restored summary to stay first")
	}
}

func TestNewFactory(t *testing.T) {
	client := &fakeClient{}

	for _, kind := range []Kind{KindUnbounded, KindSlidingWindow, KindRecursiveSummary, KindSummaryWindow} {
		h, err := New(kind, client, 4)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", kind, err)
		}
		if h == nil {
			t.Fatalf("New(%q) returned nil history", kind)
		}
		if len(h.Messages()) != 0 {
			t.Errorf("New(%q) should start empty", kind)
		}
	}

	if _, err := New(Kind("lru"), client, 4); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}

func TestKindValid(t *testing.T) {
	if !KindSlidingWindow.Valid() {
		t.Error("KindSlidingWindow should be valid")
	}
	if Kind("lru").Valid() {
		t.Error("Unknown kind should not be valid")
	}
}
