package cache

import (
	"context"
	"time"

	"github.com/mealplan/backend/internal/domain/shared"
)

const (
	defaultRetryInterval = 25 * time.Millisecond
	defaultMaxWait       = 3 * time.Second
)

// LockerOption configures how long Acquire keeps retrying
type LockerOption func(*retryPolicy)

type retryPolicy struct {
	interval time.Duration
	maxWait  time.Duration
}

// WithRetryInterval sets the pause between attempts
func WithRetryInterval(d time.Duration) LockerOption {
	return func(p *retryPolicy) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxWait bounds the total time spent waiting for a held lock
func WithMaxWait(d time.Duration) LockerOption {
	return func(p *retryPolicy) {
		if d >= 0 {
			p.maxWait = d
		}
	}
}

func newRetryPolicy(opts []LockerOption) retryPolicy {
	p := retryPolicy{interval: defaultRetryInterval, maxWait: defaultMaxWait}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// acquire calls try until it succeeds, fails, ctx ends or maxWait elapses
func (p retryPolicy) acquire(ctx context.Context, key string, try func() (bool, error)) error {
	deadline := time.Now().Add(p.maxWait)
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Add(p.interval).Before(deadline) {
			return shared.NewLockBusyError(key)
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return shared.NewLockBusyError(key)
		case <-timer.C:
		}
	}
}
