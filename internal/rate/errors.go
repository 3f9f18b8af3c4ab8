package rate

import "errors"

// ErrRedisUnavailable wraps any failure talking to the backing store.
var ErrRedisUnavailable = errors.New("redis unavailable")
