package runtime

import (
	"fmt"

	"github.com/killallgit/chatkit/pkg/chat"
)

// Reduce applies one action to the state and returns the next state. It is
// pure and deterministic; the message slice is copied before any in-place
// edit so callers can hold on to old snapshots.
func Reduce(state State, action Action) State {
	switch a := action.(type) {
	case SetInput:
		state.Input = a.Input

	case SetMessages:
		state.Messages = chat.CloneMessages(a.Messages)

	case SetThreadID:
		state.CurrentThreadID = a.ThreadID

	case SetMetadata:
		state.Metadata = a.Metadata

	case SetMetadataLoading:
		state.MetadataLoading = a.Loading

	case SetError:
		state.Err = a.Err

	case SetFollowUp:
		state.FollowUpPrompts = a.Prompts

	case StartSend:
		messages := chat.CloneMessages(state.Messages)
		messages = append(messages, a.UserMessage, a.AssistantMessage)
		state.Messages = messages
		state.IsGenerating = true
		state.FollowUpPrompts = nil
		state.CurrentAssistantID = a.AssistantMessage.ID
		state.Err = ""

	case StreamToken:
		state.Messages = overwriteContent(state.Messages, a.MessageID, a.Content)

	case StreamMessage:
		messages, followUp := ApplyStreamMessage(state.Messages, a.MessageID, a.Event)
		state.Messages = messages
		if followUp != nil {
			state.FollowUpPrompts = followUp
		}

	case StreamUpdate:
		if a.FollowUp != nil {
			state.FollowUpPrompts = a.FollowUp
		}

	case StreamError:
		state.Messages = overwriteContent(state.Messages, a.MessageID,
			fmt.Sprintf("Error: %s", a.Err))

	case StreamEnd:
		state.IsGenerating = false
		state.CurrentAssistantID = ""

	case ClearChat:
		if a.Starter != nil {
			state.Messages = []chat.Message{*a.Starter}
		} else {
			state.Messages = []chat.Message{}
		}
		state.FollowUpPrompts = nil
		state.IsGenerating = false
		state.CurrentAssistantID = ""
	}

	return state
}

func overwriteContent(messages []chat.Message, id, content string) []chat.Message {
	idx := chat.FindMessage(messages, id)
	if idx < 0 {
		return messages
	}
	out := chat.CloneMessages(messages)
	out[idx].Content = content
	return out
}
