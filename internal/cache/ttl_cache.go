package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLCache is a typed view over an in-memory expiring cache.
type TTLCache[V any] struct {
	items *gocache.Cache
}

// NewTTLCache returns a cache whose entries expire after ttl.
// Expired entries are purged every cleanup interval.
func NewTTLCache[V any](ttl, cleanup time.Duration) *TTLCache[V] {
	return &TTLCache[V]{items: gocache.New(ttl, cleanup)}
}

func (c *TTLCache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	raw, ok := c.items.Get(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return value, true
}

func (c *TTLCache[V]) Set(key string, value V) {
	if c == nil {
		return
	}
	c.items.Set(key, value, gocache.DefaultExpiration)
}

func (c *TTLCache[V]) Delete(keys ...string) {
	if c == nil {
		return
	}
	for _, key := range keys {
		c.items.Delete(key)
	}
}

// DeletePrefix drops every entry whose key starts with prefix.
func (c *TTLCache[V]) DeletePrefix(prefix string) {
	if c == nil {
		return
	}
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
		}
	}
}

func (c *TTLCache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.items.ItemCount()
}

func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
