package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// recordScript increments the counter and arms the window TTL on the first
// hit, or when a previous writer left the key without one.
var recordScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 or redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// Decision is the outcome of a [Window.Check].
type Decision struct {
	Allowed bool
	Count   int64
	ResetAt time.Time
}

// Window is a fixed-window attempt counter.
type Window struct {
	redis       redis.UniversalClient
	maxAttempts int64
	length      time.Duration
	now         func() time.Time
}

// NewWindow returns a counter allowing maxAttempts recorded hits per key
// within each window of the given length.
func NewWindow(client redis.UniversalClient, maxAttempts int, length time.Duration) *Window {
	return &Window{
		redis:       client,
		maxAttempts: int64(maxAttempts),
		length:      length,
		now:         time.Now,
	}
}

// Check reports whether another hit is allowed for key without consuming one.
func (w *Window) Check(ctx context.Context, key string) (Decision, error) {
	now := w.now()

	pipe := w.redis.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count, err := getCmd.Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Decision{Allowed: true, ResetAt: now.Add(w.length)}, nil
		}
		return Decision{}, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	resetAt := now.Add(w.length)
	if ttl := ttlCmd.Val(); ttl > 0 {
		resetAt = now.Add(ttl)
	}

	return Decision{
		Allowed: count < w.maxAttempts,
		Count:   count,
		ResetAt: resetAt,
	}, nil
}

// Record consumes one hit for key and returns the new count.
func (w *Window) Record(ctx context.Context, key string) (int64, error) {
	count, err := recordScript.Run(ctx, w.redis, []string{key}, w.length.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}

// Length returns the window duration.
func (w *Window) Length() time.Duration {
	return w.length
}
