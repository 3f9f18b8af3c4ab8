package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/pinreset"
	"go.uber.org/zap"
)

type messages struct {
	neutral       string
	confirmed     string
	badDomain     string
	pinPolicy     string
	requestFailed string
	resetFailed   string
}

func newMessages(opts Options) messages {
	pinPolicy := fmt.Sprintf("PIN must be %d to %d digits", opts.PINMinDigits, opts.PINMaxDigits)
	if opts.PINMinDigits == opts.PINMaxDigits {
		pinPolicy = fmt.Sprintf("PIN must be %d digits", opts.PINMinDigits)
	}
	return messages{
		neutral:       "If an account exists with this enrollment ID, you will receive PIN reset instructions.",
		confirmed:     "PIN successfully reset",
		badDomain:     fmt.Sprintf("Invalid email domain. Must be a %s email address.", opts.InstitutionLabel),
		pinPolicy:     pinPolicy,
		requestFailed: "Failed to process request",
		resetFailed:   "Failed to reset PIN",
	}
}

type errorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// writeError maps an engine error onto a status and public message. Token
// failures share one message so responses do not reveal which check failed.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *pinreset.RateLimitError
	if errors.As(err, &rl) {
		now := h.now()
		w.Header().Set("Retry-After", rl.ResetAt.UTC().Format(http.TimeFormat))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:      "Too many reset attempts",
			RetryAfter: pinreset.RetryAfterMinutes(rl.ResetAt, now),
		})
		return
	}

	switch {
	case errors.Is(err, pinreset.ErrEmailRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Email is required"})
	case errors.Is(err, pinreset.ErrInvalidDomain):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: h.messages.badDomain})
	case errors.Is(err, pinreset.ErrInvalidEnrollmentID):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid enrollment ID format"})
	case errors.Is(err, pinreset.ErrEmailNotVerified):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please verify your email first"})
	case errors.Is(err, pinreset.ErrTokenAndPINRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Token and new PIN are required"})
	case errors.Is(err, pinreset.ErrPINPolicy):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: h.messages.pinPolicy})
	case errors.Is(err, pinreset.ErrResetTokenInvalid), errors.Is(err, pinreset.ErrResetTokenExpired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid or expired reset token"})
	default:
		h.logger.Error("pin reset request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", pinreset.KindOf(err).String()),
			zap.Error(err),
		)
		msg := h.messages.requestFailed
		if r.URL.Path == "/api/auth/reset-pin" {
			msg = h.messages.resetFailed
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
