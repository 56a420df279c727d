package ollama

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/promptlab/promptlab/internal/fault"
)

// ModelInfo describes a model available on the Ollama instance.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// CacheInfo describes the state of the model cache.
type CacheInfo struct {
	Cached      bool      `json:"cached"`
	CacheTime   time.Time `json:"cache_time,omitzero"`
	CacheAge    string    `json:"cache_age,omitempty"`
	CacheValid  bool      `json:"cache_valid"`
	ModelsCount int       `json:"models_count"`
	TTL         string    `json:"ttl"`
}

// modelCache holds the last fetched model list. A stale cache is refreshed
// lazily on the next access, never by a background timer.
type modelCache struct {
	mu        sync.Mutex
	models    []ModelInfo
	fetchedAt time.Time
	ttl       time.Duration
}

func (mc *modelCache) get() ([]ModelInfo, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.models == nil || time.Since(mc.fetchedAt) >= mc.ttl {
		return nil, false
	}
	out := make([]ModelInfo, len(mc.models))
	copy(out, mc.models)
	return out, true
}

func (mc *modelCache) set(models []ModelInfo) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.models = make([]ModelInfo, len(models))
	copy(mc.models, models)
	mc.fetchedAt = time.Now()
}

func (mc *modelCache) clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.models = nil
	mc.fetchedAt = time.Time{}
}

func (mc *modelCache) info() CacheInfo {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.models == nil {
		return CacheInfo{TTL: mc.ttl.String()}
	}
	age := time.Since(mc.fetchedAt)
	return CacheInfo{
		Cached:      true,
		CacheTime:   mc.fetchedAt,
		CacheAge:    age.Round(time.Second).String(),
		CacheValid:  age < mc.ttl,
		ModelsCount: len(mc.models),
		TTL:         mc.ttl.String(),
	}
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ListModels returns the available models, served from cache while fresh.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if models, ok := c.cache.get(); ok {
		return models, nil
	}
	return c.RefreshModels(ctx)
}

// RefreshModels fetches the model list from Ollama, bypassing the cache.
func (c *Client) RefreshModels(ctx context.Context) ([]ModelInfo, error) {
	if err := c.guards.acquire(OpModels); err != nil {
		return nil, err
	}
	defer c.guards.release(OpModels)

	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	body, err := c.withTransportRetry(ctx, func() ([]byte, error) {
		return c.getJSON(ctx, "/api/tags")
	})
	if err != nil {
		return nil, c.classify(err)
	}

	var resp tagsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fault.Wrap(fault.MalformedResponse, err, "failed to parse models response")
	}

	c.cache.set(resp.Models)

	out := make([]ModelInfo, len(resp.Models))
	copy(out, resp.Models)
	return out, nil
}

// ClearModelCache drops the cached model list.
func (c *Client) ClearModelCache() {
	c.cache.clear()
}

// ModelCacheInfo reports the current cache state.
func (c *Client) ModelCacheInfo() CacheInfo {
	return c.cache.info()
}
