// Package guard serializes job creation per plan. At most one workflow run
// may be in flight for a plan id at a time; completed plans are answered
// idempotently from the record store instead.
package guard

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// PlanLock is a redis-backed single-holder lock keyed by plan id.
type PlanLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPlanLock constructs a lock with the given TTL. The TTL bounds how long
// a crashed run can block its plan.
func NewPlanLock(client *redis.Client, ttl time.Duration) *PlanLock {
	if ttl == 0 {
		ttl = 2 * time.Minute
	}
	return &PlanLock{client: client, ttl: ttl}
}

func lockKey(planID string) string {
	return "lock:plan:" + planID
}

// Acquire takes the lock for planID. It returns false when another run
// already holds it.
func (l *PlanLock) Acquire(ctx context.Context, planID string) (bool, error) {
	return l.client.SetNX(ctx, lockKey(planID), "1", l.ttl).Result()
}

// Release frees the lock. Safe to call on an expired lock.
func (l *PlanLock) Release(ctx context.Context, planID string) error {
	return l.client.Del(ctx, lockKey(planID)).Err()
}
