// Package cache holds the gateway's event-fed customer projection. It is
// process-local and intentionally has no backing store: a miss means "not yet
// available", never a synchronous fetch, and the whole projection is rebuilt
// from the event stream after a restart.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/jayymeson/loomi-test/internal/models"
)

type entry struct {
	key       string
	view      models.CustomerView
	expiresAt time.Time
}

// CustomerCache is a bounded LRU with per-entry TTL. Capacity eviction drops
// the least recently used entry; expired entries are dropped on read.
type CustomerCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

func NewCustomerCache(capacity int, ttl time.Duration) *CustomerCache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &CustomerCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Set stores or refreshes a projection, evicting the LRU entry at capacity.
func (c *CustomerCache) Set(view models.CustomerView) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[view.ID]; ok {
		el.Value.(*entry).view = view
		el.Value.(*entry).expiresAt = c.expiry()
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}

	c.items[view.ID] = c.order.PushFront(&entry{
		key:       view.ID,
		view:      view,
		expiresAt: c.expiry(),
	})
}

// Get returns the projection for userID, or false when it is absent or
// expired.
func (c *CustomerCache) Get(userID string) (models.CustomerView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[userID]
	if !ok {
		return models.CustomerView{}, false
	}

	e := el.Value.(*entry)
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.order.Remove(el)
		delete(c.items, userID)
		return models.CustomerView{}, false
	}

	c.order.MoveToFront(el)
	return e.view, true
}

// Len reports the number of live entries, expired ones included until read.
func (c *CustomerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *CustomerCache) expiry() time.Time {
	if c.ttl == 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}
