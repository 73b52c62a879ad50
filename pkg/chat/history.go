package chat

import (
	"time"

	"github.com/google/uuid"
)

// MergeAPIMessages converts a flat role-tagged history into the UI message
// shape. Consecutive ai and tool entries bounded by the next human message
// are merged into a single assistant message collecting every tool call and
// result plus the final non-empty ai text, so replayed history renders the
// same way it did while streaming.
func MergeAPIMessages(history []APIMessage) []Message {
	var out []Message
	var current *Message

	flush := func() {
		if current != nil {
			out = append(out, *current)
			current = nil
		}
	}

	ensureAssistant := func() *Message {
		if current == nil {
			msg := NewAssistantMessage(uuid.NewString(), "")
			current = &msg
		}
		return current
	}

	for _, api := range history {
		switch {
		case api.IsHuman():
			flush()
			out = append(out, Message{
				ID:         uuid.NewString(),
				Role:       RoleUser,
				Content:    api.Content,
				CreatedAt:  time.Now(),
				CustomData: api.CustomData,
			})

		case api.IsAI():
			msg := ensureAssistant()
			if api.Content != "" {
				msg.Content = api.Content
			}
			for _, call := range api.ToolCalls {
				if hasInvocation(msg.ToolInvocations, call.ID) {
					continue
				}
				msg.ToolInvocations = append(msg.ToolInvocations, NewToolCall(call.Name, call.ID, call.Args))
			}
			if api.RunID != "" {
				if msg.CustomData == nil {
					msg.CustomData = map[string]any{}
				}
				msg.CustomData["runId"] = api.RunID
			}

		case api.IsTool():
			msg := ensureAssistant()
			msg.ToolInvocations = ResolveToolInvocation(msg.ToolInvocations, api)

		default:
			// Custom entries carry widget-side payloads (e.g. follow-up
			// prompts) that have no place in replayed history.
		}
	}
	flush()

	return out
}

// ResolveToolInvocation folds a tool-result message into an invocation list.
// A pending call with the same ToolCallID is replaced in place, keeping its
// name when the incoming one is the generic fallback. Without a matching
// call the result is appended.
func ResolveToolInvocation(invocations []ToolInvocation, api APIMessage) []ToolInvocation {
	name := api.ResolveToolName()
	result := UnescapeToolResult(api.Content)

	if api.ToolCallID != "" {
		for i := range invocations {
			if invocations[i].IsCall() && invocations[i].ToolCallID == api.ToolCallID {
				if name == GenericToolName && invocations[i].ToolName != "" {
					name = invocations[i].ToolName
				}
				invocations[i] = NewToolResult(name, api.ToolCallID, result)
				return invocations
			}
		}
	}
	return append(invocations, NewToolResult(name, api.ToolCallID, result))
}

func hasInvocation(invocations []ToolInvocation, callID string) bool {
	if callID == "" {
		return false
	}
	for i := range invocations {
		if invocations[i].ToolCallID == callID {
			return true
		}
	}
	return false
}
