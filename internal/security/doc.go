// Package security summarizes the security posture of an engine
// configuration for operators and startup logs.
//
// # What this package must NOT do
//
//   - Perform I/O or read secrets.
//   - Import the root package.
package security
