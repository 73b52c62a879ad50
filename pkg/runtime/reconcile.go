package runtime

import (
	"github.com/killallgit/chatkit/pkg/chat"
	"github.com/killallgit/chatkit/pkg/events"
)

// ApplyStreamMessage folds a message-variant stream event into the log and
// returns the updated log plus any follow-up prompts the event carried
// (nil when it carried none).
//
// Rules, in priority order:
//  1. tool result: resolve into the target's invocation list
//  2. tool calls present: append calls not yet represented by id
//  3. custom message with follow-up prompts: return the prompt list only
//  4. plain assistant text: overwrite content, merge custom data
//
// A terminal message event is authoritative over partial token content.
func ApplyStreamMessage(messages []chat.Message, targetID string, ev events.Event) ([]chat.Message, []string) {
	if ev.Kind != events.KindMessage {
		return messages, nil
	}

	// Freeform text frame: same as a plain assistant message.
	if ev.Message == nil {
		return overwriteContent(messages, targetID, ev.Content), nil
	}

	api := *ev.Message

	if api.IsTool() {
		return applyToolResult(messages, targetID, api), nil
	}

	if len(api.ToolCalls) > 0 {
		return applyToolCalls(messages, targetID, api), nil
	}

	if prompts := api.FollowUpPrompts(); prompts != nil {
		return messages, prompts
	}

	if api.IsCustom() {
		return messages, nil
	}

	return applyAssistantText(messages, targetID, api), nil
}

func applyToolResult(messages []chat.Message, targetID string, api chat.APIMessage) []chat.Message {
	idx := chat.FindMessage(messages, targetID)
	if idx < 0 {
		return messages
	}
	out := chat.CloneMessages(messages)
	invocations := make([]chat.ToolInvocation, len(out[idx].ToolInvocations))
	copy(invocations, out[idx].ToolInvocations)
	out[idx].ToolInvocations = chat.ResolveToolInvocation(invocations, api)
	return out
}

// applyToolCalls appends calls not already represented by ToolCallID.
// Existing results stay unchanged and keep their position after all calls.
func applyToolCalls(messages []chat.Message, targetID string, api chat.APIMessage) []chat.Message {
	idx := chat.FindMessage(messages, targetID)
	if idx < 0 {
		return messages
	}
	out := chat.CloneMessages(messages)

	var calls, results []chat.ToolInvocation
	for _, inv := range out[idx].ToolInvocations {
		if inv.IsResult() {
			results = append(results, inv)
		} else {
			calls = append(calls, inv)
		}
	}
	for _, call := range api.ToolCalls {
		if hasCallID(out[idx].ToolInvocations, call.ID) {
			continue
		}
		calls = append(calls, chat.NewToolCall(call.Name, call.ID, call.Args))
	}

	out[idx].ToolInvocations = append(calls, results...)
	return out
}

func applyAssistantText(messages []chat.Message, targetID string, api chat.APIMessage) []chat.Message {
	idx := chat.FindMessage(messages, targetID)
	if idx < 0 {
		return messages
	}
	out := chat.CloneMessages(messages)
	msg := &out[idx]

	msg.Content = api.Content

	if len(api.CustomData) > 0 || api.RunID != "" {
		merged := make(map[string]any, len(msg.CustomData)+len(api.CustomData)+1)
		for k, v := range msg.CustomData {
			merged[k] = v
		}
		for k, v := range api.CustomData {
			merged[k] = v
		}
		if api.RunID != "" {
			// Feedback submissions are correlated through this run id.
			merged["runId"] = api.RunID
		}
		msg.CustomData = merged
	}
	return out
}

func hasCallID(invocations []chat.ToolInvocation, callID string) bool {
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
