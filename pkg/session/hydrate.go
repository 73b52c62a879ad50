package session

import (
	"context"

	"github.com/killallgit/chatkit/pkg/chat"
	"github.com/killallgit/chatkit/pkg/persistence"
	"github.com/killallgit/chatkit/pkg/runtime"
)

// Initialize resolves the active thread and hydrates its history before any
// send occurs. Metadata failures surface as error state and stay retryable
// through RefetchMetadata; hydration failures fall back to the local store.
func (m *Manager) Initialize(ctx context.Context) {
	m.dispatch(runtime.SetMetadataLoading{Loading: true})
	metadata, err := m.client.GetMetadata(ctx, false)
	if err != nil {
		m.log.Debug().Err(err).Msg("metadata fetch failed")
		m.dispatch(runtime.SetError{Err: err.Error()})
	} else {
		m.dispatch(runtime.SetMetadata{Metadata: metadata})
	}
	m.dispatch(runtime.SetMetadataLoading{Loading: false})

	threadID, restored := m.resolveThread()
	m.dispatch(runtime.SetThreadID{ThreadID: threadID})

	if restored {
		m.hydrate(ctx, threadID)
		return
	}
	m.seedStarter()
}

// resolveThread picks the active thread id by priority: explicit configured
// id, id restored from persistence, freshly minted id. Reports whether the
// id may have existing history worth hydrating.
func (m *Manager) resolveThread() (string, bool) {
	if m.opts.ThreadID != "" {
		return m.opts.ThreadID, true
	}

	key := storageKey(m.client.BaseURL(), m.opts.UserID, m.agentKey())
	if stored, ok := m.store.Get(key); ok && stored != "" {
		return stored, true
	}

	return m.mintThread(), false
}

// LoadThread replaces the entire message log with the history of the given
// thread, from the backend when possible, from the local cache otherwise.
// An empty result with no cache surfaces as error state.
func (m *Manager) LoadThread(ctx context.Context, threadID string) {
	m.dispatch(runtime.SetThreadID{ThreadID: threadID})
	if !m.hydrate(ctx, threadID) {
		m.dispatch(runtime.SetError{Err: "no history found for thread " + threadID})
	}
}

// hydrate fetches remote history when a user id is present and falls back to
// the locally persisted log for the exact thread key on any failure. It
// reports whether any history was found; when none was, the log is reset to
// the starter state.
func (m *Manager) hydrate(ctx context.Context, threadID string) bool {
	if m.opts.UserID != "" {
		history, err := m.client.GetHistory(ctx, threadID, m.opts.UserID)
		if err == nil && len(history) > 0 {
			m.dispatch(runtime.SetMessages{Messages: chat.MergeAPIMessages(history)})
			return true
		}
		if err != nil {
			m.log.Debug().Err(err).Str("thread", threadID).Msg("remote history failed, trying local cache")
		}
	}

	key := messagesKey(m.client.BaseURL(), m.opts.UserID, m.agentKey(), threadID)
	if cached := persistence.LoadMessages(m.store, key); cached != nil {
		m.dispatch(runtime.SetMessages{Messages: cached})
		return true
	}

	m.seedStarter()
	return false
}

// RefetchMetadata forces a fresh metadata fetch past the cache.
func (m *Manager) RefetchMetadata(ctx context.Context) error {
	m.dispatch(runtime.SetMetadataLoading{Loading: true})
	defer m.dispatch(runtime.SetMetadataLoading{Loading: false})

	metadata, err := m.client.GetMetadata(ctx, true)
	if err != nil {
		m.dispatch(runtime.SetError{Err: err.Error()})
		return err
	}
	m.dispatch(runtime.SetMetadata{Metadata: metadata})
	return nil
}

// seedStarter resets the log to the configured starter message (or empty)
// and surfaces the starter suggestions as follow-up prompts.
func (m *Manager) seedStarter() {
	m.dispatch(runtime.ClearChat{Starter: m.starter(true)})
	if len(m.opts.StarterSuggestions) > 0 {
		m.dispatch(runtime.SetFollowUp{Prompts: m.opts.StarterSuggestions})
	}
}
