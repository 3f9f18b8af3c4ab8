package pinreset

import (
	"context"
	"time"

	"github.com/MrEthical07/pinreset/internal/identity"
	"github.com/MrEthical07/pinreset/internal/limiters"
	"github.com/MrEthical07/pinreset/internal/stores"
	"github.com/MrEthical07/pinreset/jwt"
	"github.com/MrEthical07/pinreset/pin"
	"go.uber.org/zap"
)

// Engine runs PIN reset flows. It is safe for concurrent use.
type Engine struct {
	config    Config
	identity  *identity.Validator
	limiter   *limiters.PINResetLimiter
	issueLock *stores.IssueLock
	tokens    *jwt.Manager
	hasher    PINHasher
	policy    pin.Policy
	users     UserStore
	mailer    Mailer
	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time
}

// Close flushes the engine logger. The Redis client and user store belong to
// the caller and stay open.
func (e *Engine) Close() {
	if e == nil || e.logger == nil {
		return
	}
	_ = e.logger.Sync()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	if e == nil || e.now == nil {
		return time.Now()
	}
	return e.now()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) loggerFor(ctx context.Context) *zap.Logger {
	if e == nil || e.logger == nil {
		return zap.NewNop()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		return e.logger.With(zap.String("request_id", id))
	}
	return e.logger
}
