// Package session orchestrates thread lifecycle, persistence-backed
// hydration and streaming sends, driving the runtime state machine through
// reducer actions.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/killallgit/chatkit/pkg/chat"
	"github.com/killallgit/chatkit/pkg/client"
	"github.com/killallgit/chatkit/pkg/events"
	"github.com/killallgit/chatkit/pkg/logger"
	"github.com/killallgit/chatkit/pkg/persistence"
	"github.com/killallgit/chatkit/pkg/runtime"
)

// ServiceClient is the backend surface the manager drives.
type ServiceClient interface {
	BaseURL() string
	GetMetadata(ctx context.Context, force bool) (*client.Metadata, error)
	Stream(ctx context.Context, agent string, req client.StreamRequest) (<-chan events.Event, error)
	CancelStream()
	GetHistory(ctx context.Context, threadID, userID string) ([]chat.APIMessage, error)
	GetThreads(ctx context.Context, query client.ThreadQuery) client.ThreadPage
	SendFeedback(ctx context.Context, runID, key string, score float64) error
}

// Options is the consumed widget configuration for one manager instance.
type Options struct {
	Agent              string
	Model              string
	ThreadID           string
	UserID             string
	Stream             bool
	StarterMessage     string
	StarterSuggestions []string

	// OnStreamEnd receives the final assistant content after every send,
	// however the stream concluded.
	OnStreamEnd func(content string)
}

// Manager owns one runtime instance: a single logical thread of control
// where all state mutation happens through the reducer.
type Manager struct {
	client ServiceClient
	store  persistence.Store
	opts   Options
	log    zerolog.Logger

	mu          sync.Mutex
	state       runtime.State
	subscribers []func(runtime.State)
}

// NewManager wires a manager; call Initialize before the first send to
// resolve the thread and hydrate history.
func NewManager(svc ServiceClient, store persistence.Store, opts Options) *Manager {
	return &Manager{
		client: svc,
		store:  store,
		opts:   opts,
		state:  runtime.NewState(),
		log:    logger.WithComponent("session"),
	}
}

// State returns a snapshot of the current runtime state.
func (m *Manager) State() runtime.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a callback invoked after every state change with the
// new snapshot.
func (m *Manager) Subscribe(fn func(runtime.State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// dispatch runs one action through the reducer, applies persistence side
// effects and notifies subscribers.
func (m *Manager) dispatch(action runtime.Action) runtime.State {
	m.mu.Lock()
	m.state = runtime.Reduce(m.state, action)
	state := m.state
	subscribers := m.subscribers
	m.mu.Unlock()

	m.persist(state, action)

	for _, fn := range subscribers {
		fn(state)
	}
	return state
}

// persist mirrors the thread id and message log into the store after every
// state change. An empty log removes its key rather than storing an empty
// array.
//
// A thread switch persists only the id: at that moment the in-memory log
// still belongs to the previous thread, so saving it under the new thread's
// key would overwrite (or, when the log is empty, delete) that thread's
// cached history before hydration can read it.
func (m *Manager) persist(state runtime.State, action runtime.Action) {
	if state.CurrentThreadID == "" {
		return
	}

	key := storageKey(m.client.BaseURL(), m.opts.UserID, m.agentKey())
	if err := m.store.Set(key, state.CurrentThreadID); err != nil {
		m.log.Debug().Err(err).Msg("failed to persist thread id")
	}

	if _, ok := action.(runtime.SetThreadID); ok {
		return
	}

	msgKey := messagesKey(m.client.BaseURL(), m.opts.UserID, m.agentKey(), state.CurrentThreadID)
	if err := persistence.SaveMessages(m.store, msgKey, state.Messages); err != nil {
		m.log.Debug().Err(err).Msg("failed to persist messages")
	}
}

// agentKey resolves the active agent: configured agent first, then the
// backend default.
func (m *Manager) agentKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agentKeyLocked()
}

func (m *Manager) agentKeyLocked() string {
	if m.opts.Agent != "" {
		return m.opts.Agent
	}
	if m.state.Metadata != nil {
		return m.state.Metadata.DefaultAgent
	}
	return ""
}

// SetInput updates the draft input text.
func (m *Manager) SetInput(input string) {
	m.dispatch(runtime.SetInput{Input: input})
}

// SetMessages replaces the message log wholesale.
func (m *Manager) SetMessages(messages []chat.Message) {
	m.dispatch(runtime.SetMessages{Messages: messages})
}

// SetThreadID switches the active thread id without touching the log.
func (m *Manager) SetThreadID(threadID string) {
	m.dispatch(runtime.SetThreadID{ThreadID: threadID})
}

// SetModel changes the model used by subsequent sends. The active thread is
// kept; nothing is renegotiated mid-stream.
func (m *Manager) SetModel(model string) {
	m.mu.Lock()
	m.opts.Model = model
	m.mu.Unlock()
}

// ClearOptions controls ClearChat behavior.
type ClearOptions struct {
	KeepStarter     bool
	CreateNewThread bool
}

// ClearChat empties the conversation, optionally reseeding the starter
// message and rotating to a fresh thread id.
func (m *Manager) ClearChat(opts ClearOptions) {
	// Capture the outgoing thread so its stored log can be dropped.
	previous := m.State().CurrentThreadID

	if opts.CreateNewThread {
		m.dispatch(runtime.SetThreadID{ThreadID: m.mintThread()})
	}

	m.dispatch(runtime.ClearChat{Starter: m.starter(opts.KeepStarter)})

	if opts.CreateNewThread && previous != "" {
		key := messagesKey(m.client.BaseURL(), m.opts.UserID, m.agentKey(), previous)
		if err := m.store.Remove(key); err != nil {
			m.log.Debug().Err(err).Msg("failed to drop previous thread log")
		}
	}
}

// SetAgent switches the active agent. A change always mints a new thread and
// clears the log; histories are never merged across agents.
func (m *Manager) SetAgent(agent string) {
	m.mu.Lock()
	if m.opts.Agent == agent {
		m.mu.Unlock()
		return
	}
	m.opts.Agent = agent
	m.mu.Unlock()

	m.dispatch(runtime.SetThreadID{ThreadID: m.mintThread()})
	m.dispatch(runtime.ClearChat{Starter: m.starter(true)})
	if len(m.opts.StarterSuggestions) > 0 {
		m.dispatch(runtime.SetFollowUp{Prompts: m.opts.StarterSuggestions})
	}
}

// RateResponse submits feedback for a message, correlated through the runId
// recorded on it during streaming.
func (m *Manager) RateResponse(ctx context.Context, messageID string, rating float64) error {
	state := m.State()
	idx := chat.FindMessage(state.Messages, messageID)
	if idx < 0 {
		return errNoRunID
	}
	runID, _ := state.Messages[idx].CustomData["runId"].(string)
	if runID == "" {
		return errNoRunID
	}
	return m.client.SendFeedback(ctx, runID, "human-feedback-stars", rating)
}

// GetThreads lists stored threads for the configured user.
func (m *Manager) GetThreads(ctx context.Context, limit, offset int, search string) client.ThreadPage {
	return m.client.GetThreads(ctx, client.ThreadQuery{
		UserID: m.opts.UserID,
		Limit:  limit,
		Offset: offset,
		Search: search,
	})
}

// GetHistory fetches the raw stored history for a thread.
func (m *Manager) GetHistory(ctx context.Context, threadID string) ([]chat.APIMessage, error) {
	return m.client.GetHistory(ctx, threadID, m.opts.UserID)
}

// mintThread generates and persists a fresh thread id.
func (m *Manager) mintThread() string {
	threadID := uuid.NewString()
	key := storageKey(m.client.BaseURL(), m.opts.UserID, m.agentKey())
	if err := m.store.Set(key, threadID); err != nil {
		m.log.Debug().Err(err).Msg("failed to persist minted thread id")
	}
	return threadID
}

// starter synthesizes the starter message when configured and wanted.
func (m *Manager) starter(keep bool) *chat.Message {
	if !keep || m.opts.StarterMessage == "" {
		return nil
	}
	msg := chat.NewAssistantMessage(uuid.NewString(), m.opts.StarterMessage)
	return &msg
}
