// Package limiters provides the PIN reset rate limiters built on top of the
// internal/rate primitives.
//
// # Limiters
//
//   - [PINResetLimiter]: per-email attempt budget shared by the request and
//     confirm phases, plus an optional per-IP budget for invalid confirm tokens.
//
// All limiters are nil-safe: calling any method on a nil receiver allows the
// request and records nothing.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace. Policy thresholds come from
// Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import pinreset or any sibling internal package except internal/rate.
//   - Decide consequences of a denial; flow functions do that.
package limiters
