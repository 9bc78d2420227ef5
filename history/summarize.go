package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/scttfrdmn/chatmem/chatmem"
	"github.com/scttfrdmn/chatmem/llm"
)

const (
	summaryInstruction = "Given the existing conversation summary and the new messages, " +
		"generate a new summary of the conversation. Ensure to maintain " +
		"as much relevant information as possible."

	noPreviousSummary = "No previous summary"
)

// summarize asks the client for an updated summary of newMessages given the
// existing summary text, reports the call to rec, and returns the result as
// a system message.
func summarize(ctx context.Context, client llm.Client, rec Recorder, existingSummary string, newMessages []*chatmem.Message) (*chatmem.Message, error) {
	if existingSummary == "" {
		existingSummary = noPreviousSummary
	}
	prompt := []*chatmem.Message{
		chatmem.NewMessage(chatmem.RoleSystem, summaryInstruction),
		chatmem.NewMessage(chatmem.RoleUser, fmt.Sprintf(
			"Existing conversation summary:\n%s\n\nNew messages:\n%s",
			existingSummary, RenderTranscript(newMessages))),
	}

	reply, err := client.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}
	if rec != nil {
		rec.RecordMessage(reply)
	}
	return chatmem.NewMessage(chatmem.RoleSystem, reply.Content), nil
}

// RenderTranscript renders messages as "role: content" lines for inclusion
// in summarization prompts.
func RenderTranscript(messages []*chatmem.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, m.Content)
	}
	return b.String()
}
