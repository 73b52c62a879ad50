package runtime

import (
	"github.com/killallgit/chatkit/pkg/chat"
	"github.com/killallgit/chatkit/pkg/client"
	"github.com/killallgit/chatkit/pkg/events"
)

// Action is the closed set of state transitions. Reduce switches on the
// concrete type; anything unknown passes the state through unchanged.
type Action interface {
	isAction()
}

type SetInput struct{ Input string }

type SetMessages struct{ Messages []chat.Message }

type SetThreadID struct{ ThreadID string }

type SetMetadata struct{ Metadata *client.Metadata }

type SetMetadataLoading struct{ Loading bool }

type SetError struct{ Err string }

type SetFollowUp struct{ Prompts []string }

// StartSend appends the user message and the placeholder assistant message
// and marks generation in flight. Callers must not dispatch this while a
// send is already generating.
type StartSend struct {
	UserMessage      chat.Message
	AssistantMessage chat.Message
}

// StreamToken overwrites the target message's content with the cumulative
// text carried by a token event.
type StreamToken struct {
	MessageID string
	Content   string
}

// StreamMessage folds a message-variant stream event into the log.
type StreamMessage struct {
	MessageID string
	Event     events.Event
}

// StreamUpdate replaces the follow-up prompts when an update event carries
// them; otherwise it is a no-op.
type StreamUpdate struct{ FollowUp []string }

// StreamError annotates the in-flight message with the error text.
type StreamError struct {
	MessageID string
	Err       string
}

// StreamEnd clears the generation flag. It is dispatched exactly once per
// send, whatever way the stream concluded.
type StreamEnd struct{}

// ClearChat replaces the log with either nothing or a single starter
// message.
type ClearChat struct {
	Starter *chat.Message
}

func (SetInput) isAction()           {}
func (SetMessages) isAction()        {}
func (SetThreadID) isAction()        {}
func (SetMetadata) isAction()        {}
func (SetMetadataLoading) isAction() {}
func (SetError) isAction()           {}
func (SetFollowUp) isAction()        {}
func (StartSend) isAction()          {}
func (StreamToken) isAction()        {}
func (StreamMessage) isAction()      {}
func (StreamUpdate) isAction()       {}
func (StreamError) isAction()        {}
func (StreamEnd) isAction()          {}
func (ClearChat) isAction()          {}
