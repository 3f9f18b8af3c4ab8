package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/pinreset"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ClientContext copies the client IP and chi request id into the request
// context so engine throttles and logs can see them.
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ip := clientIP(r.RemoteAddr); ip != "" {
			ctx = pinreset.WithClientIP(ctx, ip)
		}
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = pinreset.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP accepts both the bare address RealIP writes and the host:port
// form net/http fills in.
func clientIP(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}
	ip := net.ParseIP(remoteAddr)
	if ip == nil {
		return ""
	}
	return ip.String()
}
