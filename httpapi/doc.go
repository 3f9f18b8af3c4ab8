// Package httpapi serves the PIN reset operations over HTTP with chi.
//
// Routes:
//
//	POST /api/auth/forgot-pin         {"email": "..."}
//	POST /api/auth/reset-pin          {"token": "...", "newPin": "..."}
//	GET  /api/auth/reset-pin/verify   ?token=...
//	GET  /healthz
//
// Every failure body is {"error": "<text>"}. Rate-limited responses use 429,
// add "retryAfter" in minutes to the body and set Retry-After to the instant
// the window reopens.
package httpapi
