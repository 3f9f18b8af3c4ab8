package httpapi

import (
	"context"
	"net/http"
	"net/netip"
	"time"

	"github.com/MrEthical07/pinreset/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ResetService is the part of *pinreset.Engine the handlers call.
type ResetService interface {
	RequestPINReset(ctx context.Context, email string) error
	ConfirmPINReset(ctx context.Context, token, newPIN string) error
	VerifyResetToken(ctx context.Context, token string) (string, error)
}

type Options struct {
	Logger *zap.Logger

	// AllowedOrigins feeds the CORS handler. Empty disables CORS headers.
	AllowedOrigins []string

	// InstitutionLabel appears in the bad-domain message. Default "CURAJ".
	InstitutionLabel string
	PINMinDigits     int
	PINMaxDigits     int

	// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP
	// headers are believed. Empty means the socket address is the client IP.
	TrustedProxies []netip.Prefix

	// RequestTimeout bounds each handler. Zero means no extra bound.
	RequestTimeout time.Duration

	// Health is called by /healthz. Nil reports healthy.
	Health func(ctx context.Context) error

	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler

	Now func() time.Time
}

// NewRouter returns the HTTP handler for svc.
func NewRouter(svc ResetService, opts Options) http.Handler {
	h := newHandler(svc, opts)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(opts.TrustedProxies))
	r.Use(middleware.ClientContext)
	r.Use(middleware.RequestLogger(h.logger))
	r.Use(chimw.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	r.Get("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/forgot-pin", h.forgotPIN)
		r.Post("/reset-pin", h.resetPIN)
		r.Get("/reset-pin/verify", h.verifyResetToken)
	})

	return r
}

func newHandler(svc ResetService, opts Options) *handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.InstitutionLabel == "" {
		opts.InstitutionLabel = "CURAJ"
	}
	if opts.PINMinDigits <= 0 {
		opts.PINMinDigits = 4
	}
	if opts.PINMaxDigits < opts.PINMinDigits {
		opts.PINMaxDigits = opts.PINMinDigits
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &handler{
		svc:      svc,
		logger:   opts.Logger,
		validate: validator.New(),
		messages: newMessages(opts),
		health:   opts.Health,
		now:      opts.Now,
	}
}
