package lock

import (
	"context"
	"slices"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/codemart/internal/errs"
)

var (
	ErrLockTimeout = errs.New(errs.ErrConflict, "lock_timeout")
	ErrEmptyKey    = errs.New(errs.ErrValidation, "lock_key_empty")
)

// Release frees every key taken by a single Acquire call. It is safe to call more than once.
type Release func()

// Locker grants exclusive access to a set of keys. Keys are taken in the
// order given; callers pass them sorted so that two operations touching
// overlapping sets cannot wait on each other.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

// AccountKey is the lock key guarding every point account owned by userID.
func AccountKey(userID snowflake.ID) string {
	return "codemart:lock:account:" + userID.String()
}

// AccountKeys returns the lock keys for the given users in ascending user id order without duplicates.
func AccountKeys(userIDs ...snowflake.ID) []string {
	ids := make([]snowflake.ID, 0, len(userIDs))
	for _, id := range userIDs {
		if id == 0 {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, AccountKey(id))
	}
	return keys
}
