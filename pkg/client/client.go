// Package client implements the HTTP/SSE protocol to the chat backend:
// metadata fetch with a TTL cache, the streaming exchange, history and
// thread listing, and feedback submission.
package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/killallgit/chatkit/pkg/logger"
)

// Client talks to one backend base URL. At most one stream is active per
// client instance; starting a new one cancels the previous.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient carries no request timeout; the stream context is the
	// only deadline on a long-lived exchange.
	streamClient *http.Client
	cache        *MetadataCache
	log          zerolog.Logger

	mu           sync.Mutex
	cancelStream context.CancelFunc
}

// NewClient creates a client backed by the process-wide metadata cache.
func NewClient(baseURL string) *Client {
	return NewClientWithCache(baseURL, sharedCache)
}

// NewClientWithCache creates a client with an explicit metadata cache,
// letting callers scope caching however they need.
func NewClientWithCache(baseURL string, cache *MetadataCache) *Client {
	return &Client{
		baseURL: NormalizeBaseURL(baseURL),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
		cache:        cache,
		log:          logger.WithComponent("client"),
	}
}

// BaseURL returns the normalized backend URL this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NormalizeBaseURL strips the trailing slash so URL-derived keys compare
// equal regardless of how the URL was written.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}
