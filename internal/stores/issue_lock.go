package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrIssueLockHeld             = errors.New("issue lock held")
	ErrIssueLockRedisUnavailable = errors.New("issue lock redis unavailable")
)

var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// IssueLock is a per-user mutual exclusion lease stored in Redis.
type IssueLock struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewIssueLock(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *IssueLock {
	if prefix == "" {
		prefix = "pil"
	}
	return &IssueLock{
		redis:  redisClient,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (l *IssueLock) key(userID string) string {
	return l.prefix + ":" + userID
}

// Acquire takes the lease for userID on behalf of owner. It returns
// ErrIssueLockHeld when another owner holds it.
func (l *IssueLock) Acquire(ctx context.Context, userID, owner string) error {
	ok, err := l.redis.SetNX(ctx, l.key(userID), owner, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIssueLockRedisUnavailable, err)
	}
	if !ok {
		return ErrIssueLockHeld
	}
	return nil
}

// Release drops the lease if owner still holds it. Releasing a lease that
// expired or passed to another owner is a no-op.
func (l *IssueLock) Release(ctx context.Context, userID, owner string) error {
	if err := releaseScript.Run(ctx, l.redis, []string{l.key(userID)}, owner).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrIssueLockRedisUnavailable, err)
	}
	return nil
}

// TTL returns the lease duration.
func (l *IssueLock) TTL() time.Duration {
	return l.ttl
}
