// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRequestPINReset, RunConfirmPINReset,
// RunVerifyResetToken) accepts a typed dependency struct and returns results
// without side-effects beyond those dependencies. Tests drive them with plain
// function fakes and keep the Engine type thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user store, token manager, rate
// limiter, issuance lock, mailer, and metrics. They do NOT own any of these
// resources. Ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import pinreset (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
