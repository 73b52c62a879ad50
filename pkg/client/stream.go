package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/killallgit/chatkit/pkg/events"
)

// doneSentinel is the frame body that terminates a stream.
const doneSentinel = "[DONE]"

// streamBufferSize bounds how far the reader goroutine can run ahead of the
// consumer.
const streamBufferSize = 100

// maxFrameSize is the largest single SSE frame we accept.
const maxFrameSize = 1 << 20

// StreamRequest is the body of a single streaming exchange.
type StreamRequest struct {
	Message      string `json:"message"`
	Model        string `json:"model,omitempty"`
	ThreadID     string `json:"thread_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	StreamTokens bool   `json:"stream_tokens"`
}

// Stream opens one streaming exchange with the given agent and returns a
// lazy, finite sequence of normalized events. The sequence ends after the
// terminal sentinel, on transport failure, or on cancellation; cancellation
// closes the channel cleanly without an error event. Any stream previously
// opened by this client is cancelled first.
func (c *Client) Stream(ctx context.Context, agent string, req StreamRequest) (<-chan events.Event, error) {
	streamCtx := c.resetStream(ctx)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/stream", c.baseURL, agent)
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxFrameSize))
		return nil, fmt.Errorf("stream request failed with status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(errorBody)))
	}

	out := make(chan events.Event, streamBufferSize)
	go c.readStream(streamCtx, resp.Body, out)

	return out, nil
}

// CancelStream aborts the active stream, if any. Safe to call repeatedly.
func (c *Client) CancelStream() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelStream != nil {
		c.cancelStream()
		c.cancelStream = nil
	}
}

// resetStream cancels any previous stream and installs a fresh cancellable
// context derived from the caller's.
func (c *Client) resetStream(ctx context.Context) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelStream != nil {
		c.cancelStream()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.cancelStream = cancel
	return streamCtx
}

// readStream parses newline-delimited SSE frames off the response body and
// emits normalized events. Malformed frames are logged and skipped; one bad
// frame never ends the stream.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, out chan<- events.Event) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		if data == doneSentinel {
			out <- events.Done
			return
		}

		event, ok := events.Normalize([]byte(data))
		if !ok {
			c.log.Debug().Str("frame", data).Msg("dropping unrecognized stream frame")
			continue
		}

		select {
		case out <- event:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		out <- events.Event{Kind: events.KindError, Content: err.Error()}
	}
}
