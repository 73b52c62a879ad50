// Package runtime holds the canonical conversation state and the reducer
// that is the only way to mutate it.
package runtime

import (
	"github.com/killallgit/chatkit/pkg/chat"
	"github.com/killallgit/chatkit/pkg/client"
)

// State is the full runtime state snapshot.
//
// IsGenerating is true iff CurrentAssistantID points at an in-flight
// assistant message; at most one message is in flight at a time.
type State struct {
	Messages           []chat.Message
	Input              string
	IsGenerating       bool
	FollowUpPrompts    []string
	CurrentThreadID    string
	CurrentAssistantID string
	Metadata           *client.Metadata
	MetadataLoading    bool
	Err                string
}

// NewState returns an empty state.
func NewState() State {
	return State{Messages: []chat.Message{}}
}
