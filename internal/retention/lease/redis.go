package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leaseKeyPrefix = "retention:lease:"

// releaseScript deletes the lease only if this instance still holds it, so a
// slow run that outlived its TTL cannot release a successor's lease.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLease implements mutual exclusion across scheduler instances with a
// SET NX PX leased lock. This is the production implementation for
// distributed deployments.
type RedisLease struct {
	client *redis.Client
}

// NewRedisLease constructs a Redis-backed lease.
func NewRedisLease(client *redis.Client) *RedisLease {
	return &RedisLease{client: client}
}

// Acquire takes the table's lease for ttl. ok=false means another instance
// holds it.
func (l *RedisLease) Acquire(ctx context.Context, table string, ttl time.Duration) (func(), bool, error) {
	key := leaseKeyPrefix + table
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		// Best effort; an unreleased lease expires with its TTL.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
