package service

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/cache"
	"github.com/smallbiznis/codemart/internal/stats/domain"
)

const defaultStatsTTL = 30 * time.Second

// Cache holds computed statistics. Every invalidation bumps a per-owner
// generation; a fill computed under an older generation is dropped so a
// slow reader cannot store a snapshot taken before a concurrent write.
type Cache struct {
	mu        sync.Mutex
	users     *cache.TTLCache[domain.UserOrderStats]
	downloads *cache.TTLCache[domain.DownloadStatistics]
	userGen   map[snowflake.ID]uint64
	projGen   map[snowflake.ID]uint64
}

func NewCache() *Cache {
	return newCache(defaultStatsTTL)
}

func newCache(ttl time.Duration) *Cache {
	return &Cache{
		users:     cache.NewTTLCache[domain.UserOrderStats](ttl, 5*time.Minute),
		downloads: cache.NewTTLCache[domain.DownloadStatistics](ttl, 5*time.Minute),
		userGen:   make(map[snowflake.ID]uint64),
		projGen:   make(map[snowflake.ID]uint64),
	}
}

func userKey(userID snowflake.ID, perspective string) string {
	return cache.Key("user", userID.String(), perspective)
}

func projectKey(projectID snowflake.ID, from, to *time.Time) string {
	return cache.Key("project", projectID.String(), timeKey(from), timeKey(to))
}

// user returns the cached stats or the generation a fresh fill must present.
func (c *Cache) user(userID snowflake.ID, perspective string) (domain.UserOrderStats, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.users.Get(userKey(userID, perspective))
	return stats, c.userGen[userID], ok
}

func (c *Cache) storeUser(userID snowflake.ID, perspective string, gen uint64, stats domain.UserOrderStats) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userGen[userID] != gen {
		return false
	}
	c.users.Set(userKey(userID, perspective), stats)
	return true
}

func (c *Cache) project(projectID snowflake.ID, from, to *time.Time) (domain.DownloadStatistics, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats, ok := c.downloads.Get(projectKey(projectID, from, to))
	return stats, c.projGen[projectID], ok
}

func (c *Cache) storeProject(projectID snowflake.ID, from, to *time.Time, gen uint64, stats domain.DownloadStatistics) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.projGen[projectID] != gen {
		return false
	}
	c.downloads.Set(projectKey(projectID, from, to), stats)
	return true
}

func (c *Cache) InvalidateUser(userID snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userGen[userID]++
	c.users.DeletePrefix(cache.Key("user", userID.String()) + ":")
}

func (c *Cache) InvalidateProject(projectID snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projGen[projectID]++
	c.downloads.DeletePrefix(cache.Key("project", projectID.String()) + ":")
}
