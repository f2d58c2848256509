package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/codemart/internal/stats/domain"
	"github.com/stretchr/testify/assert"
)

func TestCacheDropsFillStartedBeforeInvalidation(t *testing.T) {
	c := NewCache()
	userID := snowflake.ID(11)

	_, gen, ok := c.user(userID, perspectiveBuyer)
	assert.False(t, ok)

	// a write commits while the reader is still aggregating
	c.InvalidateUser(userID)

	stale := domain.UserOrderStats{UserID: userID, TotalOrders: 1, TotalAmount: decimal.NewFromInt(10)}
	assert.False(t, c.storeUser(userID, perspectiveBuyer, gen, stale))
	_, _, ok = c.user(userID, perspectiveBuyer)
	assert.False(t, ok)

	_, gen, _ = c.user(userID, perspectiveBuyer)
	assert.True(t, c.storeUser(userID, perspectiveBuyer, gen, stale))
	got, _, ok := c.user(userID, perspectiveBuyer)
	assert.True(t, ok)
	assert.Equal(t, int64(1), got.TotalOrders)
}

func TestCacheInvalidationIsPerOwner(t *testing.T) {
	c := NewCache()
	projectID := snowflake.ID(7)
	window := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, projGen, _ := c.project(projectID, &window, nil)
	_, userGen, _ := c.user(snowflake.ID(11), perspectiveSeller)

	c.InvalidateUser(snowflake.ID(99))
	assert.True(t, c.storeUser(snowflake.ID(11), perspectiveSeller, userGen, domain.UserOrderStats{}))

	c.InvalidateProject(projectID)
	assert.False(t, c.storeProject(projectID, &window, nil, projGen, domain.DownloadStatistics{}))
}
