// Package chatmem provides the core types for conversational context
// management: messages, roles, and per-call token usage.
package chatmem

import (
	"fmt"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleSystem marks synthetic messages such as running summaries.
	RoleSystem Role = "system"
	// RoleUser marks messages submitted by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks messages generated by the model.
	RoleAssistant Role = "assistant"
)

// Message represents one conversation turn.
//
// Messages are immutable by convention: once appended to a history they are
// never edited in place. Histories hand out copies via CloneMessages so
// callers cannot reach back into policy state.
type Message struct {
	Role      Role                   `json:"role"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role Role, content string) *Message {
	return &Message{
		Role:      role,
		Content:   content,
		Metadata:  make(map[string]interface{}),
		Timestamp: time.Now().UTC(),
	}
}

// Validate checks that the message carries a known role.
func (m *Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("invalid message role: %q. Must be one of: system, user, assistant", m.Role)
	}
}

// Clone returns a shallow copy of the message with its own metadata map.
func (m *Message) Clone() *Message {
	c := &Message{
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
	if m.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// CloneMessages copies a message slice, cloning each element.
func CloneMessages(messages []*Message) []*Message {
	out := make([]*Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}
