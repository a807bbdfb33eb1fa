package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mealplan/backend/internal/domain/shared"
)

type heldLock struct {
	token     string
	expiresAt time.Time
}

// InMemoryLocker implements shared.Locker inside one process. It is used when
// redis is disabled and in tests; it does not coordinate separate replicas.
type InMemoryLocker struct {
	mu     sync.Mutex
	held   map[string]heldLock
	policy retryPolicy
	now    func() time.Time
}

var _ shared.Locker = (*InMemoryLocker)(nil)

// NewInMemoryLocker creates an in-process locker
func NewInMemoryLocker(opts ...LockerOption) *InMemoryLocker {
	return &InMemoryLocker{
		held:   make(map[string]heldLock),
		policy: newRetryPolicy(opts),
		now:    time.Now,
	}
}

// Acquire takes the lock on key for at most ttl
func (l *InMemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (shared.ReleaseFunc, error) {
	token := uuid.NewString()
	err := l.policy.acquire(ctx, key, func() (bool, error) {
		return l.tryLock(key, token, ttl), nil
	})
	if err != nil {
		return nil, err
	}
	return func(context.Context) error {
		l.unlock(key, token)
		return nil
	}, nil
}

func (l *InMemoryLocker) tryLock(key, token string, ttl time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, ok := l.held[key]; ok && now.Before(h.expiresAt) {
		return false
	}
	l.held[key] = heldLock{token: token, expiresAt: now.Add(ttl)}
	l.sweep(now)
	return true
}

func (l *InMemoryLocker) unlock(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[key]; ok && h.token == token {
		delete(l.held, key)
	}
}

// sweep drops expired entries; the caller holds mu
func (l *InMemoryLocker) sweep(now time.Time) {
	for k, h := range l.held {
		if !now.Before(h.expiresAt) {
			delete(l.held, k)
		}
	}
}

// Size returns the number of live locks
func (l *InMemoryLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
