package session

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/killallgit/chatkit/pkg/chat"
	"github.com/killallgit/chatkit/pkg/client"
	"github.com/killallgit/chatkit/pkg/events"
	"github.com/killallgit/chatkit/pkg/runtime"
)

var (
	// ErrAlreadyGenerating rejects a send while one is in flight.
	ErrAlreadyGenerating = errors.New("a message is already being generated")
	// ErrNoAgent rejects a send when no agent can be resolved.
	ErrNoAgent = errors.New("no agent is configured or advertised by the backend")

	errNoRunID = errors.New("message has no run id to rate")
)

// SendMessage runs one full exchange: appends the user and placeholder
// assistant messages, drives the stream, folds every event into state in
// arrival order, and always concludes with StreamEnd.
func (m *Manager) SendMessage(ctx context.Context, text string) error {
	agent, req, assistantID, err := m.beginSend(text)
	if err != nil {
		return err
	}

	// The last content seen, handed to OnStreamEnd whatever way the
	// stream concludes.
	var lastContent string

	defer func() {
		m.dispatch(runtime.StreamEnd{})
		if m.opts.OnStreamEnd != nil {
			m.opts.OnStreamEnd(lastContent)
		}
	}()

	stream, err := m.client.Stream(ctx, agent, req)
	if err != nil {
		m.dispatch(runtime.StreamError{MessageID: assistantID, Err: err.Error()})
		return err
	}

	for event := range stream {
		switch event.Kind {
		case events.KindToken:
			// Token content is the full accumulated text so far.
			lastContent = event.Content
			m.dispatch(runtime.StreamToken{MessageID: assistantID, Content: event.Content})

		case events.KindMessage:
			if event.Message == nil {
				lastContent = event.Content
			} else if event.Message.IsAI() && event.Message.Content != "" && len(event.Message.ToolCalls) == 0 {
				lastContent = event.Message.Content
			}
			m.dispatch(runtime.StreamMessage{MessageID: assistantID, Event: event})

		case events.KindUpdate:
			m.dispatch(runtime.StreamUpdate{FollowUp: followUpFromUpdates(event.Updates)})

		case events.KindError:
			m.dispatch(runtime.StreamError{MessageID: assistantID, Err: event.Content})

		case events.KindDone:
			return nil
		}
	}

	return nil
}

// beginSend atomically checks the send guard, resolves the request
// parameters and marks generation in flight, so two concurrent sends can
// never both pass the guard. Returns the agent, the request body and the
// id of the placeholder assistant message.
func (m *Manager) beginSend(text string) (string, client.StreamRequest, string, error) {
	m.mu.Lock()
	if m.state.IsGenerating {
		m.mu.Unlock()
		return "", client.StreamRequest{}, "", ErrAlreadyGenerating
	}
	agent := m.agentKeyLocked()
	if agent == "" {
		m.mu.Unlock()
		return "", client.StreamRequest{}, "", ErrNoAgent
	}

	threadID := m.state.CurrentThreadID
	if threadID == "" {
		threadID = uuid.NewString()
		m.state = runtime.Reduce(m.state, runtime.SetThreadID{ThreadID: threadID})
	}

	req := client.StreamRequest{
		Message:      text,
		Model:        m.opts.Model,
		ThreadID:     threadID,
		UserID:       m.opts.UserID,
		StreamTokens: m.opts.Stream,
	}

	userMsg := chat.NewUserMessage(uuid.NewString(), text)
	assistantMsg := chat.NewAssistantMessage(uuid.NewString(), "")
	action := runtime.StartSend{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}
	m.state = runtime.Reduce(m.state, action)
	state := m.state
	subscribers := m.subscribers
	m.mu.Unlock()

	m.persist(state, action)
	for _, fn := range subscribers {
		fn(state)
	}

	return agent, req, assistantMsg.ID, nil
}

// StopGeneration cancels the in-flight exchange and immediately marks
// generation finished; it does not wait for the cancellation to propagate
// through the stream. Idempotent.
func (m *Manager) StopGeneration() {
	m.client.CancelStream()
	m.dispatch(runtime.StreamEnd{})
}

// followUpFromUpdates extracts a follow-up prompt list from an update
// payload, or nil when none is present.
func followUpFromUpdates(updates map[string]any) []string {
	if updates == nil {
		return nil
	}
	raw, ok := updates["followUp"].([]any)
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
