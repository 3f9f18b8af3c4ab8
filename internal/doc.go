// Package internal contains helpers that are private to pinreset: lease owner
// generation, token fingerprints for logs, and jittered delays.
//
// # Sub-packages
//
//   - flows: pure-function orchestrators for every Engine operation
//   - identity: institution email and enrollment ID validation
//   - limiters: PIN reset rate limiters
//   - rate: Redis fixed-window counter primitive
//   - security: configuration posture report
//   - stores: Redis issuance lock
//
// # What this package must NOT do
//
//   - Export types that appear in the public pinreset API.
//   - Be imported by any package outside the pinreset module.
package internal
