// Package stores provides short-lived Redis records that coordinate the PIN
// reset flows across engine instances.
//
// # Design
//
// [IssueLock] serializes token issuance per user. Acquire is a single
// SET NX PX; Release deletes the key only while it still carries the caller's
// owner token, via a compare-and-delete script. A lock whose holder crashed
// expires on its own after the configured TTL.
//
// # Architecture boundaries
//
// This package owns concurrency control only. It does NOT generate tokens,
// enforce rate limits, or touch the user store.
//
// # What this package must NOT do
//
//   - Import pinreset or any sibling internal package.
//   - Log or expose reset tokens.
package stores
