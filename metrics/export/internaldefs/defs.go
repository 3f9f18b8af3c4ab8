package internaldefs

import (
	"github.com/MrEthical07/pinreset"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   pinreset.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   pinreset.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: pinreset.MetricResetRequest, Name: "pinreset_request_total", Help: "Reset requests that issued and mailed a token."},
	{ID: pinreset.MetricResetRequestNeutral, Name: "pinreset_request_neutral_total", Help: "Reset requests for unknown accounts answered neutrally."},
	{ID: pinreset.MetricResetRequestContended, Name: "pinreset_request_contended_total", Help: "Reset requests that lost the per-user issuance lock."},
	{ID: pinreset.MetricResetRateLimited, Name: "pinreset_rate_limited_total", Help: "Reset attempts rejected by a limiter."},
	{ID: pinreset.MetricResetMailFailure, Name: "pinreset_mail_failure_total", Help: "Reset emails that could not be delivered."},
	{ID: pinreset.MetricResetConfirmSuccess, Name: "pinreset_confirm_success_total", Help: "Committed PIN changes."},
	{ID: pinreset.MetricResetConfirmFailure, Name: "pinreset_confirm_failure_total", Help: "Confirm attempts that changed nothing."},
	{ID: pinreset.MetricResetInvalidToken, Name: "pinreset_invalid_token_total", Help: "Presented reset tokens that failed verification."},
	{ID: pinreset.MetricResetIPThrottled, Name: "pinreset_ip_throttled_total", Help: "Confirm attempts refused by the per-IP throttle."},
	{ID: pinreset.MetricResetRecordFailure, Name: "pinreset_record_failure_total", Help: "Successful attempts the limiter failed to record."},
}

var HistogramDefs = []HistogramDef{
	{ID: pinreset.MetricResetRequestLatency, Name: "pinreset_request_latency_seconds", Help: "Reset request latency histogram."},
	{ID: pinreset.MetricResetConfirmLatency, Name: "pinreset_confirm_latency_seconds", Help: "Reset confirm latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one more bucket for +Inf.
var HistogramUpperBounds = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// HistogramBucketLabels are the "le" values of each bucket, +Inf last.
var HistogramBucketLabels = []string{"0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "1", "+Inf"}

const BucketCount = 8

// NormalizeBuckets copies raw into a fixed array, padding or truncating.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
