package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per username in Redis.
// Key format: login:failures:<username>
type LoginThrottle struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewLoginThrottle allows maxAttempts failures per window before Allow
// starts refusing.
func NewLoginThrottle(client *redis.Client, maxAttempts int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Allow reports whether another login attempt for username may proceed.
func (l *LoginThrottle) Allow(ctx context.Context, username string) (bool, error) {
	n, err := l.client.Get(ctx, key(username)).Int64()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("throttle check: %w", err)
	}
	return n < l.maxAttempts, nil
}

// RecordFailure bumps the failure counter. The window starts at the first
// failure; INCR and EXPIRE NX share one MULTI so the key never lives without a TTL.
func (l *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	k := key(username)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("throttle record: %w", err)
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *LoginThrottle) Reset(ctx context.Context, username string) error {
	return l.client.Del(ctx, key(username)).Err()
}

func key(username string) string {
	return "login:failures:" + username
}
