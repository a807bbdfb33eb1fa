package shared

import (
	"context"
	"time"
)

// ReleaseFunc releases a lock obtained from a Locker
type ReleaseFunc func(ctx context.Context) error

// Locker serializes work on one key across callers, possibly across processes.
// Acquire waits until the lock is free or ctx is done; a lock that cannot be
// taken in time yields a CONCURRENT_MODIFICATION error.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// NewLockBusyError reports that key is held by someone else
func NewLockBusyError(key string) *DomainError {
	return NewDomainError(CodeConcurrentModification, "Another operation on "+key+" is in progress, retry shortly")
}
