package cache

import (
	"sync"
	"testing"
	"time"

	"rentalshop/internal/models"

	"github.com/stretchr/testify/assert"
)

func testResponse(total int) *models.SearchResponse {
	return &models.SearchResponse{Total: total, Items: []models.SearchItem{}}
}

func TestNew(t *testing.T) {
	c := New(30 * time.Second)
	assert.NotNil(t, c)
	assert.Empty(t, c.items)
}

func TestSearchCache_SetAndGet(t *testing.T) {
	c := New(10 * time.Second)

	c.Set("k", testResponse(3))
	resp, exists := c.Get("k")
	assert.True(t, exists)
	assert.Equal(t, 3, resp.Total)

	resp, exists = c.Get("missing")
	assert.False(t, exists)
	assert.Nil(t, resp)
}

func TestSearchCache_Expiration(t *testing.T) {
	c := New(100 * time.Millisecond)

	c.Set("k", testResponse(1))
	_, exists := c.Get("k")
	assert.True(t, exists)

	time.Sleep(150 * time.Millisecond)

	_, exists = c.Get("k")
	assert.False(t, exists)

	// Expired entries are dropped on read, not left behind
	c.mutex.RLock()
	_, itemExists := c.items["k"]
	c.mutex.RUnlock()
	assert.False(t, itemExists)
}

func TestSearchCache_Clear(t *testing.T) {
	c := New(10 * time.Second)

	c.Set("k1", testResponse(1))
	c.Set("k2", testResponse(2))
	c.Clear()

	_, exists1 := c.Get("k1")
	_, exists2 := c.Get("k2")
	assert.False(t, exists1)
	assert.False(t, exists2)
}

func TestSearchCache_ConcurrentAccess(t *testing.T) {
	c := New(10 * time.Second)
	iterations := 100
	var wg sync.WaitGroup

	wg.Add(iterations * 3)
	for i := 0; i < iterations; i++ {
		go func(n int) {
			defer wg.Done()
			c.Set("k", testResponse(n))
		}(i)
		go func() {
			defer wg.Done()
			c.Get("k")
		}()
		go func(n int) {
			defer wg.Done()
			if n%10 == 0 {
				c.Clear()
			}
		}(i)
	}
	wg.Wait()

	c.Set("final", testResponse(9))
	resp, exists := c.Get("final")
	assert.True(t, exists)
	assert.Equal(t, 9, resp.Total)
}

func TestKey(t *testing.T) {
	base := models.SearchQuery{Text: "áo dài", Mode: "auto", Page: 1, Limit: 20}

	assert.Equal(t, Key(base), Key(base))

	variants := []models.SearchQuery{
		{Text: "áo dài", Mode: "exact", Page: 1, Limit: 20},
		{Text: "áo dài", Mode: "auto", Category: "Áo Dài", Page: 1, Limit: 20},
		{Text: "áo dài", Mode: "auto", HasImage: true, Page: 1, Limit: 20},
		{Text: "áo dài", Mode: "auto", Sort: "oldest", Page: 1, Limit: 20},
		{Text: "áo dài", Mode: "auto", Page: 2, Limit: 20},
		{Text: "áo dài", Mode: "auto", Page: 1, Limit: 50},
	}
	for _, v := range variants {
		assert.NotEqual(t, Key(base), Key(v), "query %+v must have its own cache key", v)
	}
}
