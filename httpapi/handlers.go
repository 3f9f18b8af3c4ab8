package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MrEthical07/pinreset"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 8 << 10

type handler struct {
	svc      ResetService
	logger   *zap.Logger
	validate *validator.Validate
	messages messages
	health   func(ctx context.Context) error
	now      func() time.Time
}

type forgotPINRequest struct {
	Email string `json:"email" validate:"required"`
}

type resetPINRequest struct {
	Token  string `json:"token" validate:"required,max=4096"`
	NewPIN string `json:"newPin" validate:"required,max=64"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

func (h *handler) forgotPIN(w http.ResponseWriter, r *http.Request) {
	var body forgotPINRequest
	if err := h.decode(r, &body); err != nil {
		h.writeError(w, r, h.forgotValidationError(err))
		return
	}

	if err := h.svc.RequestPINReset(r.Context(), body.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: h.messages.neutral})
}

func (h *handler) resetPIN(w http.ResponseWriter, r *http.Request) {
	var body resetPINRequest
	if err := h.decode(r, &body); err != nil {
		h.writeError(w, r, h.resetValidationError(err))
		return
	}

	if err := h.svc.ConfirmPINReset(r.Context(), body.Token, body.NewPIN); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: h.messages.confirmed})
}

func (h *handler) verifyResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || len(token) > 4096 {
		h.writeError(w, r, pinreset.ErrResetTokenInvalid)
		return
	}

	if _, err := h.svc.VerifyResetToken(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Valid: true})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

var errMalformedBody = errors.New("malformed request body")

func (h *handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errMalformedBody
	}
	return h.validate.Struct(dst)
}

// forgotValidationError covers a missing or unreadable email only. Domain
// and format rules belong to the engine so their order holds.
func (h *handler) forgotValidationError(error) error {
	return pinreset.ErrEmailRequired
}

func (h *handler) resetValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 || verrs[0].Tag() == "required" {
		return pinreset.ErrTokenAndPINRequired
	}
	if verrs[0].Field() == "NewPIN" {
		return pinreset.ErrPINPolicy
	}
	return pinreset.ErrResetTokenInvalid
}
