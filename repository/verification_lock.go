package repository

import (
	"context"
	"time"
)

// VerificationLock is the single-flight guard for proof submissions. Only
// one verification may be in flight per task; a second submission is bounced
// until the holder releases the lock or its TTL expires. The TTL bounds the
// window so a crashed holder cannot wedge the task.
type VerificationLock interface {
	Acquire(ctx context.Context, taskID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, taskID string) error
}
