package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/mealplan/backend/internal/domain/shared"
	"github.com/mealplan/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LockerFactory creates the locker the application uses, based on configuration
type LockerFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	lockerOpts            []LockerOption
}

// LockerFactoryOption is a functional option for configuring the factory
type LockerFactoryOption func(*LockerFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable redis degrades to the
// in-process locker. Default is true.
func WithInMemoryFallback(allow bool) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithLockerOptions passes retry options to the created locker
func WithLockerOptions(opts ...LockerOption) LockerFactoryOption {
	return func(f *LockerFactory) {
		f.lockerOpts = append(f.lockerOpts, opts...)
	}
}

// NewLockerFactory creates a new factory
func NewLockerFactory(cfg config.RedisConfig, opts ...LockerFactoryOption) *LockerFactory {
	f := &LockerFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisLocker connects to redis and returns a locker over it
func (f *LockerFactory) CreateRedisLocker(ctx context.Context) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisLocker(client, "", f.lockerOpts...), nil
}

// CreateLocker returns a redis locker when redis is enabled and reachable,
// otherwise the in-process locker. The returned close function releases the
// redis connection and is safe to call for either kind.
func (f *LockerFactory) CreateLocker(ctx context.Context) (shared.Locker, func() error, error) {
	noop := func() error { return nil }
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-process locks")
		return NewInMemoryLocker(f.lockerOpts...), noop, nil
	}

	locker, err := f.CreateRedisLocker(ctx)
	if err == nil {
		f.logger.Info("Using Redis locks", zap.String("addr", f.redisConfig.Addr()))
		return locker, locker.Close, nil
	}
	if !f.allowInMemoryFallback {
		return nil, noop, fmt.Errorf("Redis required for locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-process locks. "+
		"Freezes from different replicas are then serialized by the database only.",
		zap.Error(err),
	)
	return NewInMemoryLocker(f.lockerOpts...), noop, nil
}
