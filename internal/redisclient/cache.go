package redisclient

import (
	"context"
	"encoding/json"
	"log"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ViewCache is a JSON-backed Redis cache for one family of read model
// projections. The key prefix namespaces the family ("user:view:" etc.) so
// several caches can share a client; a zero TTL keeps entries until they are
// explicitly invalidated.
type ViewCache[T any] struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewViewCache[T any](client *goredis.Client, prefix string, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached projection for id. A missing key, a Redis error or an
// undecodable value all read as a miss; callers fall through to the
// authoritative store.
func (c *ViewCache[T]) Get(ctx context.Context, id string) (*T, bool) {
	data, err := c.client.Get(ctx, c.prefix+id).Bytes()
	if err != nil {
		return nil, false
	}
	var view T
	if err := json.Unmarshal(data, &view); err != nil {
		log.Printf("Dropping undecodable cache entry %s%s: %v", c.prefix, id, err)
		c.Invalidate(ctx, id)
		return nil, false
	}
	return &view, true
}

// Set stores or refreshes the projection for id. Cache write failures are
// logged and swallowed: the authoritative store already committed.
func (c *ViewCache[T]) Set(ctx context.Context, id string, view *T) {
	data, err := json.Marshal(view)
	if err != nil {
		log.Printf("Failed to marshal cache entry %s%s: %v", c.prefix, id, err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+id, data, c.ttl).Err(); err != nil {
		log.Printf("Failed to write cache entry %s%s: %v", c.prefix, id, err)
	}
}

// Invalidate drops the projection for id so the next read repopulates it.
func (c *ViewCache[T]) Invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, c.prefix+id).Err(); err != nil {
		log.Printf("Failed to invalidate cache entry %s%s: %v", c.prefix, id, err)
	}
}
