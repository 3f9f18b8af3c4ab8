package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/pinreset/internal/rate"
	"github.com/redis/go-redis/v9"
)

// ErrResetRedisUnavailable wraps limiter store failures.
var ErrResetRedisUnavailable = errors.New("reset limiter redis unavailable")

// PINResetConfig configures a [PINResetLimiter].
type PINResetConfig struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration

	EnableIPThrottle        bool
	MaxInvalidConfirmsPerIP int
	InvalidConfirmWindow    time.Duration
}

// PINResetLimiter gates both reset phases for one identity.
type PINResetLimiter struct {
	config   PINResetConfig
	attempts *rate.Window
	invalid  *rate.Window
}

func NewPINResetLimiter(redisClient redis.UniversalClient, cfg PINResetConfig) *PINResetLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "prl"
	}
	l := &PINResetLimiter{
		config:   cfg,
		attempts: rate.NewWindow(redisClient, cfg.MaxAttempts, cfg.Window),
	}
	if cfg.EnableIPThrottle {
		l.invalid = rate.NewWindow(redisClient, cfg.MaxInvalidConfirmsPerIP, cfg.InvalidConfirmWindow)
	}
	return l
}

// Check reports whether email still has budget in the current window.
func (l *PINResetLimiter) Check(ctx context.Context, email string) (rate.Decision, error) {
	if l == nil {
		return rate.Decision{Allowed: true}, nil
	}
	d, err := l.attempts.Check(ctx, l.emailKey(email))
	if err != nil {
		return rate.Decision{}, fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}
	return d, nil
}

// Record consumes one attempt for email. Call only after the guarded action succeeded.
func (l *PINResetLimiter) Record(ctx context.Context, email string) error {
	if l == nil {
		return nil
	}
	if _, err := l.attempts.Record(ctx, l.emailKey(email)); err != nil {
		return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}
	return nil
}

// CheckInvalidConfirm reports whether ip may present another confirm token.
// It always allows when the IP throttle is disabled or ip is unknown.
func (l *PINResetLimiter) CheckInvalidConfirm(ctx context.Context, ip string) (rate.Decision, error) {
	if l == nil || l.invalid == nil || ip == "" {
		return rate.Decision{Allowed: true}, nil
	}
	d, err := l.invalid.Check(ctx, l.ipKey(ip))
	if err != nil {
		return rate.Decision{}, fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}
	return d, nil
}

// RecordInvalidConfirm counts one rejected confirm token against ip.
func (l *PINResetLimiter) RecordInvalidConfirm(ctx context.Context, ip string) error {
	if l == nil || l.invalid == nil || ip == "" {
		return nil
	}
	if _, err := l.invalid.Record(ctx, l.ipKey(ip)); err != nil {
		return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}
	return nil
}

// Window returns the per-email window length.
func (l *PINResetLimiter) Window() time.Duration {
	if l == nil {
		return 0
	}
	return l.config.Window
}

func (l *PINResetLimiter) emailKey(email string) string {
	return l.config.Prefix + ":e:" + strings.ToLower(strings.TrimSpace(email))
}

func (l *PINResetLimiter) ipKey(ip string) string {
	return l.config.Prefix + ":ip:" + ip
}
