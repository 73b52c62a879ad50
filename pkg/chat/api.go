package chat

import "strings"

// Wire message types, mirroring the backend's role tags.
const (
	TypeHuman  = "human"
	TypeAI     = "ai"
	TypeTool   = "tool"
	TypeCustom = "custom"
)

// GenericToolName is used when a tool result arrives without any resolvable
// name. A matching pending call's name takes precedence over it.
const GenericToolName = "Tool"

// APIToolCall is a tool call as reported by the backend.
type APIToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	ID   string         `json:"id,omitempty"`
}

// APIMessage is the flat role-tagged message shape used by the backend for
// both streamed message events and history replay.
type APIMessage struct {
	Type             string         `json:"type"`
	Name             string         `json:"name,omitempty"`
	Content          string         `json:"content"`
	ToolCalls        []APIToolCall  `json:"tool_calls,omitempty"`
	ToolCallID       string         `json:"tool_call_id,omitempty"`
	RunID            string         `json:"run_id,omitempty"`
	ResponseMetadata map[string]any `json:"response_metadata,omitempty"`
	CustomData       map[string]any `json:"custom_data,omitempty"`
}

func (m APIMessage) IsHuman() bool  { return m.Type == TypeHuman }
func (m APIMessage) IsAI() bool     { return m.Type == TypeAI }
func (m APIMessage) IsTool() bool   { return m.Type == TypeTool }
func (m APIMessage) IsCustom() bool { return m.Type == TypeCustom }

// ResolveToolName picks the display name for a tool message by precedence:
// explicit name, response-metadata name, custom-data name, generic fallback.
func (m APIMessage) ResolveToolName() string {
	if m.Name != "" {
		return m.Name
	}
	if m.ResponseMetadata != nil {
		if name, ok := m.ResponseMetadata["name"].(string); ok && name != "" {
			return name
		}
	}
	if m.CustomData != nil {
		if name, ok := m.CustomData["name"].(string); ok && name != "" {
			return name
		}
	}
	return GenericToolName
}

// FollowUpPrompts extracts the follow-up prompt list from a custom message,
// or nil when the message does not carry one.
func (m APIMessage) FollowUpPrompts() []string {
	if !m.IsCustom() || m.CustomData == nil {
		return nil
	}
	raw, ok := m.CustomData["followUp"].([]any)
	if !ok {
		return nil
	}
	prompts := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			prompts = append(prompts, s)
		}
	}
	return prompts
}

// UnescapeToolResult undoes the newline escaping some backends apply to tool
// result payloads.
func UnescapeToolResult(content string) string {
	return strings.ReplaceAll(content, `\n`, "\n")
}
