package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache(t *testing.T) {
	c := NewTTLCache[int](time.Minute, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set(Key("user", "1", "buyer"), 10)
	c.Set(Key("user", "1", "seller"), 20)
	c.Set(Key("user", "2", "buyer"), 30)

	v, ok := c.Get("user:1:buyer")
	assert.True(t, ok)
	assert.Equal(t, 10, v)

	c.DeletePrefix("user:1:")
	assert.Equal(t, 1, c.Len())

	c.Delete("user:2:buyer")
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheExpires(t *testing.T) {
	c := NewTTLCache[string](10*time.Millisecond, time.Hour)
	c.Set("k", "v")
	time.Sleep(25 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestNilTTLCache(t *testing.T) {
	var c *TTLCache[int]
	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
	c.DeletePrefix("k")
	assert.Zero(t, c.Len())
}
