package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"rentalshop/internal/models"
)

// entry is one cached search response with expiration
type entry struct {
	response  *models.SearchResponse
	expiresAt time.Time
}

// SearchCache is a small in-memory TTL cache for search responses. Index
// writes between searches make cached pages slightly stale, which the short
// TTL keeps acceptable.
type SearchCache struct {
	items map[string]*entry
	mutex sync.RWMutex
	ttl   time.Duration
}

// New creates a search cache with the given TTL
func New(ttl time.Duration) *SearchCache {
	return &SearchCache{
		items: make(map[string]*entry),
		ttl:   ttl,
	}
}

// Key builds the cache key for a query. Every parameter that changes the
// result set participates.
func Key(q models.SearchQuery) string {
	return strings.Join([]string{
		q.Text,
		q.Mode,
		q.Category,
		fmt.Sprintf("%t", q.HasImage),
		q.Sort,
		fmt.Sprintf("%d", q.Page),
		fmt.Sprintf("%d", q.Limit),
	}, "|")
}

// Get retrieves a cached response, dropping it when expired
func (c *SearchCache) Get(key string) (*models.SearchResponse, bool) {
	c.mutex.RLock()
	item, exists := c.items[key]
	c.mutex.RUnlock()
	if !exists {
		return nil, false
	}

	if time.Now().After(item.expiresAt) {
		c.mutex.Lock()
		delete(c.items, key)
		c.mutex.Unlock()
		return nil, false
	}
	return item.response, true
}

// Set stores a response under the key
func (c *SearchCache) Set(key string, response *models.SearchResponse) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &entry{
		response:  response,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Clear removes all cached responses. Called after mutations and reindex
// runs so stale pages never outlive the data they were built from.
func (c *SearchCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]*entry)
}
