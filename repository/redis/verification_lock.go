package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/dreamloop/backend/repository"
)

type verificationLock struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewVerificationLock creates the Redis-backed single-flight guard used by
// proof submissions. SET NX with a TTL gives mutual exclusion per task and a
// bounded hold time if the owner dies mid-verification.
func NewVerificationLock(client *redislib.Client, ttl time.Duration) repository.VerificationLock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &verificationLock{
		client: client,
		prefix: "verify:lock:",
		ttl:    ttl,
	}
}

func (l *verificationLock) Acquire(ctx context.Context, taskID string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = l.ttl
	}
	return l.client.SetNX(ctx, l.key(taskID), time.Now().UnixNano(), ttl).Result()
}

func (l *verificationLock) Release(ctx context.Context, taskID string) error {
	return l.client.Del(ctx, l.key(taskID)).Err()
}

func (l *verificationLock) key(taskID string) string {
	return fmt.Sprintf("%s%s", l.prefix, taskID)
}
