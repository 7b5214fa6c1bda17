package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLocker implements usecase.RunLocker with a plain SETNX lease. Good
// enough to stop two instances from double-charging a settlement period;
// the TTL frees a lease left behind by a crashed run.
type RunLocker struct {
	client *redis.Client
	prefix string
}

// NewRunLocker creates a new RunLocker.
func NewRunLocker(client *redis.Client) *RunLocker {
	return &RunLocker{
		client: client,
		prefix: "lock:",
	}
}

// Acquire takes the lease for key. Returns false when another holder owns it.
func (l *RunLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+key, "held", ttl).Result()
}
