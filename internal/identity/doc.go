// Package identity validates institutional email addresses and extracts the
// enrollment identifier embedded in their local part.
//
// # Rules
//
// Rules are applied in order and the first failure wins:
//
//  1. the address is non-empty
//  2. the domain suffix equals the institution domain exactly
//  3. the uppercased local part matches four digits, one or more letters,
//     then three digits (for example 2021CSB042)
//
// # What this package must NOT do
//
//   - Touch any store, limiter, or network dependency.
//   - Import pinreset or any sibling internal package.
package identity
