package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/killallgit/chatkit/pkg/chat"
)

// ThreadSummary is a read-only projection of one stored thread.
type ThreadSummary struct {
	ThreadID  string `json:"thread_id"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Preview   string `json:"preview,omitempty"`
}

// ThreadQuery selects a page of threads for one user.
type ThreadQuery struct {
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Search string `json:"search,omitempty"`
}

// ThreadPage is one page of thread summaries.
type ThreadPage struct {
	Threads []ThreadSummary `json:"threads"`
	Total   int             `json:"total,omitempty"`
}

// GetHistory fetches the stored message history for a thread.
func (c *Client) GetHistory(ctx context.Context, threadID, userID string) ([]chat.APIMessage, error) {
	body := map[string]string{"thread_id": threadID, "user_id": userID}

	var result struct {
		Messages []chat.APIMessage `json:"messages"`
	}
	if err := c.postJSON(ctx, "/history", body, &result); err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	return result.Messages, nil
}

// GetThreads lists stored threads. Listing degrades gracefully: any failure
// resolves to an empty page rather than an error.
func (c *Client) GetThreads(ctx context.Context, query ThreadQuery) ThreadPage {
	var page ThreadPage
	if err := c.postJSON(ctx, "/history/threads", query, &page); err != nil {
		c.log.Debug().Err(err).Msg("thread listing failed, returning empty page")
		return ThreadPage{Threads: []ThreadSummary{}}
	}
	if page.Threads == nil {
		page.Threads = []ThreadSummary{}
	}
	return page
}

// SendFeedback records a rating against a run id. Failures propagate so the
// caller can decide what to surface.
func (c *Client) SendFeedback(ctx context.Context, runID, key string, score float64) error {
	body := map[string]any{"run_id": runID, "key": key, "score": score}

	var ack map[string]any
	if err := c.postJSON(ctx, "/feedback", body, &ack); err != nil {
		return fmt.Errorf("feedback request failed: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
