// Package middleware exposes HTTP middleware that carries request metadata
// into the pinreset.Engine context and logs each request with zap.
//
// # Middleware
//
//   - [RealIP] resolves the client address from forwarding headers sent by
//     trusted proxies only.
//   - [ClientContext] attaches the client IP and request id with
//     pinreset.WithClientIP and pinreset.WithRequestID.
//   - [RequestLogger] writes one structured line per request.
//
// ClientContext expects RealIP and chi's RequestID middleware to run first.
//
// # What this package must NOT do
//
//   - Read request bodies or tokens.
//   - Make reset decisions (the Engine owns them).
package middleware
