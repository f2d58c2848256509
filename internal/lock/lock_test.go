package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountKeysSortedAndUnique(t *testing.T) {
	keys := AccountKeys(snowflake.ID(30), snowflake.ID(10), snowflake.ID(30), 0)
	assert.Equal(t, []string{AccountKey(10), AccountKey(30)}, keys)
}

func TestLocalLockerExcludes(t *testing.T) {
	locker := NewLocalLocker()
	keys := AccountKeys(1, 2)

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), keys...)
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, locker.entries)
}

func TestLocalLockerHonorsContext(t *testing.T) {
	locker := NewLocalLocker()
	release, err := locker.Acquire(context.Background(), AccountKey(1), AccountKey(2))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, AccountKey(2))
	assert.ErrorIs(t, err, ErrLockTimeout)

	release()
	release()

	again, err := locker.Acquire(context.Background(), AccountKey(2))
	require.NoError(t, err)
	again()
	assert.Empty(t, locker.entries)
}

func TestLocalLockerRejectsEmptyKey(t *testing.T) {
	locker := NewLocalLocker()
	_, err := locker.Acquire(context.Background(), AccountKey(1), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
	assert.Empty(t, locker.entries)
}
