package chat

import (
	"strings"
	"time"
)

// Message is a single entry in the conversation log. The log is owned by the
// runtime state and only mutated through reducer actions.
type Message struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	CreatedAt       time.Time        `json:"createdAt,omitempty"`
	CustomData      map[string]any   `json:"customData,omitempty"`
	ToolInvocations []ToolInvocation `json:"toolInvocations,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Invocation states. A call is pending; a result is terminal for that call.
const (
	InvocationCall   = "call"
	InvocationResult = "result"
)

// ToolInvocation is a call to an external function requested by the
// assistant, later resolved in place with a result carrying the same
// ToolCallID.
type ToolInvocation struct {
	State      string         `json:"state"`
	ToolName   string         `json:"toolName"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	Result     any            `json:"result,omitempty"`
}

func NewUserMessage(id, content string) Message {
	return Message{
		ID:        id,
		Role:      RoleUser,
		Content:   strings.TrimSpace(content),
		CreatedAt: time.Now(),
	}
}

func NewAssistantMessage(id, content string) Message {
	return Message{
		ID:        id,
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func NewToolCall(name, callID string, args map[string]any) ToolInvocation {
	return ToolInvocation{
		State:      InvocationCall,
		ToolName:   name,
		ToolCallID: callID,
		Args:       args,
	}
}

func NewToolResult(name, callID string, result any) ToolInvocation {
	return ToolInvocation{
		State:      InvocationResult,
		ToolName:   name,
		ToolCallID: callID,
		Result:     result,
	}
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == "" && len(m.ToolInvocations) == 0
}

func (t ToolInvocation) IsCall() bool {
	return t.State == InvocationCall
}

func (t ToolInvocation) IsResult() bool {
	return t.State == InvocationResult
}

// CloneMessages returns a shallow copy of the log slice so reducer actions
// never alias the slice they were handed.
func CloneMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}

// FindMessage returns the index of the message with the given id, or -1.
func FindMessage(messages []Message, id string) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}
