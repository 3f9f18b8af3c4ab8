package pinreset

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricResetRequest counts reset requests that issued and mailed a token.
	MetricResetRequest MetricID = iota
	// MetricResetRequestNeutral counts requests for unknown accounts.
	MetricResetRequestNeutral
	// MetricResetRequestContended counts requests that lost the issuance lock.
	MetricResetRequestContended
	// MetricResetRateLimited counts attempts rejected by any reset limiter.
	MetricResetRateLimited
	// MetricResetMailFailure counts reset emails that could not be sent.
	MetricResetMailFailure
	// MetricResetConfirmSuccess counts committed PIN changes.
	MetricResetConfirmSuccess
	// MetricResetConfirmFailure counts confirm attempts that changed nothing.
	MetricResetConfirmFailure
	// MetricResetInvalidToken counts presented tokens that failed verification.
	MetricResetInvalidToken
	// MetricResetIPThrottled counts confirms refused by the per-IP throttle.
	MetricResetIPThrottled
	// MetricResetRecordFailure counts attempts that succeeded but could not be recorded.
	MetricResetRecordFailure
	// MetricResetRequestLatency is the request phase latency histogram.
	MetricResetRequestLatency
	// MetricResetConfirmLatency is the confirm phase latency histogram.
	MetricResetConfirmLatency
	metricIDCount
)

// latencyBounds are the finite histogram bucket bounds. Observations above
// the last bound land in the overflow bucket.
var latencyBounds = [...]time.Duration{
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

const histBucketCount = len(latencyBounds) + 1

// histogramIDs lists the latency metrics in histogram slot order.
var histogramIDs = [...]MetricID{MetricResetRequestLatency, MetricResetConfirmLatency}

// counterSlot pads each counter to its own cache line.
type counterSlot struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free engine counters. A nil *Metrics is a valid no-op.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counterSlot
	histograms    [len(histogramIDs)][histBucketCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all metric values.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || histogramSlot(id) >= 0 {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d in the histogram for id. Non-latency ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() {
		return
	}
	slot := histogramSlot(id)
	if slot < 0 {
		return
	}
	m.histograms[slot][bucketFor(d)].Add(1)
}

// Value returns the current count for id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

// Snapshot copies every counter and, when enabled, every histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if histogramSlot(id) < 0 {
			s.Counters[id] = m.counters[id].n.Load()
		}
	}
	if !m.enableLatency {
		return s
	}
	for slot, id := range histogramIDs {
		buckets := make([]uint64, histBucketCount)
		for b := range buckets {
			buckets[b] = m.histograms[slot][b].Load()
		}
		s.Histograms[id] = buckets
	}
	return s
}

func histogramSlot(id MetricID) int {
	for slot, hid := range histogramIDs {
		if hid == id {
			return slot
		}
	}
	return -1
}

func bucketFor(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
