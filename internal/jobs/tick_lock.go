package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const tickLockKey = "postflow:tick"

var ErrTickLocked = errors.New("tick lock held by another run")

type TickLock struct {
	locker *redislock.Client
	ttl    time.Duration
}

func NewTickLock(rdb *redis.Client, ttl time.Duration) *TickLock {
	return &TickLock{
		locker: redislock.New(rdb),
		ttl:    ttl,
	}
}

func (l *TickLock) Acquire(ctx context.Context) (func(), error) {
	lock, err := l.locker.Obtain(ctx, tickLockKey, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrTickLocked
	}
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("obtain tick lock: %w", err)
	}

	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			slog.Warn("release tick lock", "error", err)
		}
	}, nil
}
