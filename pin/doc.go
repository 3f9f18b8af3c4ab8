// Package pin implements PIN hashing and verification with Argon2id defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Hashes produced by the previous bcrypt-based system ($2a$, $2b$, $2y$) are
// still accepted by [Argon2.Verify], and [Argon2.NeedsUpgrade] reports them so
// the caller can re-hash on the next successful use.
//
// # Architecture boundaries
//
// This package owns hashing, verification, and the numeric PIN policy. It
// does not store or retrieve hashes.
//
// # What this package must NOT do
//
//   - Import any other pinreset package.
//   - Log plaintext PINs or hash parameters at runtime.
package pin
