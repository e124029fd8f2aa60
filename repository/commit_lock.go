package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("commit already in progress")

// CommitLocker serialises order commits for the same payment intent.
type CommitLocker interface {
	// Acquire returns a release func, or ErrLockHeld when another commit holds the key.
	Acquire(ctx context.Context, paymentIntentID string) (func(), error)
}

type redisCommitLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCommitLocker(client *redis.Client, ttl time.Duration) CommitLocker {
	return &redisCommitLocker{client: client, ttl: ttl}
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func lockKey(paymentIntentID string) string {
	return fmt.Sprintf("lock:order:pi:%s", paymentIntentID)
}

func (l *redisCommitLocker) Acquire(ctx context.Context, paymentIntentID string) (func(), error) {
	key := lockKey(paymentIntentID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire commit lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, nil
}

// NoopLocker is used when redis is not configured; the unique index remains
// the only duplicate guard.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
