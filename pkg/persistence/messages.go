package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/killallgit/chatkit/pkg/chat"
)

// SaveMessages serializes the log under the given key. An empty log removes
// the key instead, so a cleared conversation does not resurrect on reload.
func SaveMessages(store Store, key string, messages []chat.Message) error {
	if len(messages) == 0 {
		return store.Remove(key)
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}
	return store.Set(key, string(data))
}

// LoadMessages revives a stored log. Timestamps round-trip as RFC3339
// strings and come back as time.Time values. Absent, empty or malformed
// stored values yield nil.
func LoadMessages(store Store, key string) []chat.Message {
	raw, ok := store.Get(key)
	if !ok || raw == "" {
		return nil
	}

	var messages []chat.Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil
	}
	return messages
}
