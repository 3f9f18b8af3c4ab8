// Package rate provides the Redis-backed fixed-window counter used by the
// PIN reset limiters.
//
// # Window semantics
//
// A window starts on the first recorded hit for a key: the counter is
// incremented and given a TTL equal to the window length in a single Lua
// script, so concurrent increments never lose the expiry. Check is read-only
// and reports the instant the current window ends.
//
// Checking and recording are separate calls on purpose: callers check before
// doing guarded work and record only once that work has succeeded.
//
// # What this package must NOT do
//
//   - Implement domain-specific policies or key layouts (those live in internal/limiters).
//   - Be imported outside the pinreset module.
package rate
