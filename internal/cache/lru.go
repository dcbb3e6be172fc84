package cache

import (
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// ResponseCache is a size-bounded LRU of rendered dashboard responses.
type ResponseCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
	now   func() time.Time

	// mu orders stores against Clear; gen counts clears.
	mu  sync.RWMutex
	gen uint64
}

// Response is one rendered body with its content type.
type Response struct {
	Body        []byte
	ContentType string
	expiresAt   time.Time
}

// ResponseStats represents response cache statistics.
type ResponseStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeysAdded uint64 `json:"keys_added"`
	Evictions uint64 `json:"evictions"`
	Size      int64  `json:"size_bytes"`
	Items     int64  `json:"items"`
}

// NewResponseCache creates a response cache bounded by maxSizeMB and maxEntries.
func NewResponseCache(maxSizeMB, maxEntries int64, ttl time.Duration) (*ResponseCache, error) {
	// NumCounters should be ~10x the number of entries for optimal performance
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}
	if maxSizeMB < 1 {
		maxSizeMB = 1
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxSizeMB * 1024 * 1024,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &ResponseCache{cache: c, ttl: ttl, now: time.Now}, nil
}

// ResponseKey builds a stable key from a route and its query, ignoring parameter order.
func ResponseKey(route string, query url.Values) string {
	if len(query) == 0 {
		return route
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(route)
	b.WriteByte('?')
	for i, k := range keys {
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(strings.TrimSpace(v)))
		}
	}
	return b.String()
}

// Get returns a live response for key.
func (c *ResponseCache) Get(key string) (Response, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return Response{}, false
	}
	resp, ok := val.(*Response)
	if !ok {
		c.cache.Del(key)
		return Response{}, false
	}
	if !c.now().Before(resp.expiresAt) {
		c.cache.Del(key)
		return Response{}, false
	}
	return *resp, true
}

// Set stores body under key for the cache TTL.
func (c *ResponseCache) Set(key, contentType string, body []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.set(key, contentType, body)
}

// Generation identifies the cache contents between clears. A handler reads it
// before rendering and passes it to SetIfGeneration.
func (c *ResponseCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfGeneration stores body only when no Clear happened since gen was read,
// so a response rendered from data that has since been replaced is dropped.
func (c *ResponseCache) SetIfGeneration(gen uint64, key, contentType string, body []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gen != gen {
		return false
	}
	c.set(key, contentType, body)
	return true
}

func (c *ResponseCache) set(key, contentType string, body []byte) {
	resp := &Response{
		Body:        body,
		ContentType: contentType,
		expiresAt:   c.now().Add(c.ttl),
	}
	// Cost is the size of the body in bytes
	_ = c.cache.Set(key, resp, int64(len(body)))
	// Wait for value to pass through buffers so the next read sees it.
	c.cache.Wait()
}

// Clear drops every response; called whenever the underlying data changes.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Clear()
}

// Stats returns cache statistics.
func (c *ResponseCache) Stats() ResponseStats {
	m := c.cache.Metrics
	return ResponseStats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Evictions: m.KeysEvicted(),
		Size:      int64(m.CostAdded() - m.CostEvicted()),
		Items:     int64(m.KeysAdded() - m.KeysEvicted()),
	}
}

// Close releases the cache goroutines.
func (c *ResponseCache) Close() {
	c.cache.Close()
}
