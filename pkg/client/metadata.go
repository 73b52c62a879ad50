package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// MetadataTTL is the freshness window for cached backend metadata.
const MetadataTTL = 5 * time.Minute

// AgentInfo describes one backend persona.
type AgentInfo struct {
	Key         string   `json:"key"`
	Description string   `json:"description,omitempty"`
	Prompts     []string `json:"prompts,omitempty"`
}

// Metadata is the backend-describing document fetched from /info.
type Metadata struct {
	Agents       []AgentInfo `json:"agents"`
	Models       []string    `json:"models"`
	DefaultAgent string      `json:"default_agent"`
	DefaultModel string      `json:"default_model"`
}

// AgentKeys returns the keys of all advertised agents.
func (m *Metadata) AgentKeys() []string {
	keys := make([]string, 0, len(m.Agents))
	for _, agent := range m.Agents {
		keys = append(keys, agent.Key)
	}
	return keys
}

// HasAgent reports whether the backend advertises the given agent.
func (m *Metadata) HasAgent(key string) bool {
	for _, agent := range m.Agents {
		if agent.Key == key {
			return true
		}
	}
	return false
}

type cacheEntry struct {
	metadata  *Metadata
	fetchedAt time.Time
}

// MetadataCache caches backend metadata per normalized base URL with a TTL,
// de-duplicating concurrent fetches. One instance is safe to share across
// every client in the process.
type MetadataCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
	ttl     time.Duration
	now     func() time.Time
}

// sharedCache backs clients that do not inject their own cache.
var sharedCache = NewMetadataCache()

// NewMetadataCache creates a cache with the default TTL.
func NewMetadataCache() *MetadataCache {
	return &MetadataCache{
		entries: make(map[string]cacheEntry),
		ttl:     MetadataTTL,
		now:     time.Now,
	}
}

// NewMetadataCacheWithTTL creates a cache with a custom freshness window.
func NewMetadataCacheWithTTL(ttl time.Duration) *MetadataCache {
	cache := NewMetadataCache()
	cache.ttl = ttl
	return cache
}

func (mc *MetadataCache) lookup(key string) (*Metadata, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	entry, ok := mc.entries[key]
	if !ok || mc.now().Sub(entry.fetchedAt) > mc.ttl {
		return nil, false
	}
	return entry.metadata, true
}

func (mc *MetadataCache) store(key string, metadata *Metadata) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries[key] = cacheEntry{metadata: metadata, fetchedAt: mc.now()}
}

// Invalidate drops the cached entry for a base URL.
func (mc *MetadataCache) Invalidate(baseURL string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	delete(mc.entries, NormalizeBaseURL(baseURL))
}

// GetMetadata returns the backend metadata, served from cache when fresh and
// not forced. Concurrent callers share a single in-flight fetch.
func (c *Client) GetMetadata(ctx context.Context, force bool) (*Metadata, error) {
	if !force {
		if metadata, ok := c.cache.lookup(c.baseURL); ok {
			return metadata, nil
		}
	}

	result, err, _ := c.cache.group.Do(c.baseURL, func() (any, error) {
		// Re-check under the group: a caller that piled up behind a
		// fetch should not issue another one.
		if !force {
			if metadata, ok := c.cache.lookup(c.baseURL); ok {
				return metadata, nil
			}
		}
		metadata, err := c.fetchMetadata(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.store(c.baseURL, metadata)
		return metadata, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Metadata), nil
}

func (c *Client) fetchMetadata(ctx context.Context) (*Metadata, error) {
	url := fmt.Sprintf("%s/info", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata request failed with status %d", resp.StatusCode)
	}

	var metadata Metadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	c.log.Debug().Str("url", c.baseURL).Int("agents", len(metadata.Agents)).Msg("fetched metadata")
	return &metadata, nil
}
