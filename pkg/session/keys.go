package session

import (
	"fmt"

	"github.com/killallgit/chatkit/pkg/client"
)

// Sentinels used in storage keys when no user or agent is configured, so
// anonymous and default-agent histories still get their own scope.
const (
	anonymousUser = "anon"
	defaultAgent  = "default"
)

// storageKey scopes persisted state by backend URL, user and agent. Agents
// and users never share history.
func storageKey(baseURL, userID, agent string) string {
	if userID == "" {
		userID = anonymousUser
	}
	if agent == "" {
		agent = defaultAgent
	}
	return fmt.Sprintf("chatkit|%s|%s|%s", client.NormalizeBaseURL(baseURL), userID, agent)
}

// messagesKey further scopes the message log by thread id.
func messagesKey(baseURL, userID, agent, threadID string) string {
	return fmt.Sprintf("%s|thread|%s", storageKey(baseURL, userID, agent), threadID)
}
