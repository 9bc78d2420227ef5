package chatmem

// UsageMetadataKey is the message metadata key under which LLM adapters
// attach the *Usage reported by the provider for the call that produced
// the message. Absent when the provider reported nothing.
const UsageMetadataKey = "usage"

// Usage holds the token counts a provider reported for a single call.
//
// The numbers are whatever the remote service says they are; no attempt is
// made to reconcile them with any local tokenizer.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AttachUsage stores usage on a message's metadata. A nil usage is ignored.
func AttachUsage(m *Message, u *Usage) {
	if u == nil {
		return
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]interface{})
	}
	m.Metadata[UsageMetadataKey] = u
}

// UsageFromMessage extracts the usage an adapter attached to a message.
// Returns nil when no usage metadata is present.
func UsageFromMessage(m *Message) *Usage {
	if m == nil || m.Metadata == nil {
		return nil
	}
	u, ok := m.Metadata[UsageMetadataKey].(*Usage)
	if !ok {
		return nil
	}
	return u
}
