// Package pinreset implements a self-service PIN reset engine for accounts
// identified by an institutional email address.
//
// A reset runs in two phases. [Engine.RequestPINReset] validates the address,
// enforces the per-identity attempt budget and, for a known verified account,
// issues a signed single-use token and mails a reset link.
// [Engine.ConfirmPINReset] verifies the token against its signature and the
// stored copy, re-checks the budget, and commits the new PIN hash while
// clearing the stored token in one atomic update.
//
// Unknown addresses get the same answer as known ones. Construct an Engine
// with [New] and the Builder methods; Redis, a [UserStore] and a [Mailer]
// are required.
package pinreset
