// Package jwt issues and parses signed PIN reset tokens.
//
// A reset token is a compact JWT whose subject is the owning user id, with a
// random jti so two tokens issued in the same second never collide. The
// signature proves the token was minted here; whether it is still the token on
// file for that user is decided by the caller against the stored value.
//
// # What this package must NOT do
//
//   - Look up users or stored tokens.
//   - Treat a structurally valid token as proof of a live reset.
package jwt
