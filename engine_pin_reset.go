package pinreset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/pinreset/internal"
	internalflows "github.com/MrEthical07/pinreset/internal/flows"
	"github.com/MrEthical07/pinreset/internal/identity"
	"github.com/MrEthical07/pinreset/internal/limiters"
	"github.com/MrEthical07/pinreset/internal/stores"
	"github.com/MrEthical07/pinreset/jwt"
	"go.uber.org/zap"
)

// RequestPINReset starts a reset for email. It returns nil both when a reset
// link was mailed and when no account matches, so callers must answer the
// two cases identically.
//
// Errors: validation ([ErrEmailRequired], [ErrInvalidDomain],
// [ErrInvalidEnrollmentID]), [ErrEmailNotVerified], a [*RateLimitError], or a
// dependency failure ([ErrResetUnavailable], [ErrMailDelivery]).
func (e *Engine) RequestPINReset(ctx context.Context, email string) error {
	start := time.Now()
	defer e.observe(MetricResetRequestLatency, start)
	return internalflows.RunRequestPINReset(ctx, email, e.pinResetFlowDeps(ctx))
}

// ConfirmPINReset replaces the PIN of the token owner with newPIN and
// invalidates the token.
func (e *Engine) ConfirmPINReset(ctx context.Context, token, newPIN string) error {
	start := time.Now()
	defer e.observe(MetricResetConfirmLatency, start)
	return internalflows.RunConfirmPINReset(ctx, token, newPIN, e.pinResetFlowDeps(ctx))
}

// VerifyResetToken reports the user id owning token without consuming it.
// It fails with [ErrResetTokenInvalid] or [ErrResetTokenExpired].
func (e *Engine) VerifyResetToken(ctx context.Context, token string) (string, error) {
	return internalflows.RunVerifyResetToken(ctx, token, e.pinResetFlowDeps(ctx))
}

func (e *Engine) pinResetFlowDeps(ctx context.Context) internalflows.PINResetDeps {
	if e == nil {
		return internalflows.PINResetDeps{
			Errors: internalflows.PINResetErrors{EngineNotReady: ErrEngineNotReady},
		}
	}

	deps := internalflows.PINResetDeps{
		Now:                 e.Now,
		ClientIPFromContext: ClientIPFromContext,
		Logger:              e.loggerFor(ctx),
		ValidateIdentity: func(email string) (string, error) {
			id, err := e.identity.Validate(email)
			if err != nil {
				return "", mapIdentityError(err)
			}
			return id.Email, nil
		},
		CheckLimiter: func(ctx context.Context, email string) (internalflows.LimitDecision, error) {
			d, err := e.limiter.Check(ctx, email)
			return internalflows.LimitDecision{Allowed: d.Allowed, ResetAt: d.ResetAt}, err
		},
		RecordLimiter: e.limiter.Record,
		CheckInvalidConfirm: func(ctx context.Context, ip string) (internalflows.LimitDecision, error) {
			d, err := e.limiter.CheckInvalidConfirm(ctx, ip)
			return internalflows.LimitDecision{Allowed: d.Allowed, ResetAt: d.ResetAt}, err
		},
		RecordInvalidConfirm: e.limiter.RecordInvalidConfirm,
		RateLimited: func(resetAt time.Time) error {
			return &RateLimitError{ResetAt: resetAt}
		},
		MapLimiterError: mapPINResetLimiterError,
		GetUserByEmail: func(ctx context.Context, email string) (internalflows.PINResetUser, error) {
			u, err := e.users.GetUserByEmail(ctx, email)
			return toFlowUser(u), err
		},
		GetUserByID: func(ctx context.Context, userID string) (internalflows.PINResetUser, error) {
			u, err := e.users.GetUserByID(ctx, userID)
			return toFlowUser(u), err
		},
		SetResetToken: e.users.SetResetToken,
		CompleteReset: e.users.CompleteReset,
		IsUserNotFound: func(err error) bool {
			return errors.Is(err, ErrUserNotFound)
		},
		IsResetStale: func(err error) bool {
			return errors.Is(err, ErrResetTokenStale)
		},
		MapStoreError:    mapPINResetStoreError,
		AcquireIssueLock: e.acquireIssueLock,
		IsLockHeld: func(err error) bool {
			return errors.Is(err, stores.ErrIssueLockHeld)
		},
		IssueToken: e.tokens.IssueReset,
		ParseToken: e.tokens.ParseReset,
		IsTokenExpired: func(err error) bool {
			return errors.Is(err, jwt.ErrTokenExpired)
		},
		CheckPIN:              e.policy.Check,
		HashPIN:               e.hasher.Hash,
		SendResetMail:         e.sendResetMail,
		SleepEnumerationDelay: e.sleepEnumerationDelay,
		Fingerprint:           internal.TokenFingerprint,
		MaskEmail:             maskEmail,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		Metrics: internalflows.PINResetMetrics{
			Request:          int(MetricResetRequest),
			RequestNeutral:   int(MetricResetRequestNeutral),
			RequestContended: int(MetricResetRequestContended),
			RateLimited:      int(MetricResetRateLimited),
			MailFailure:      int(MetricResetMailFailure),
			ConfirmSuccess:   int(MetricResetConfirmSuccess),
			ConfirmFailure:   int(MetricResetConfirmFailure),
			InvalidToken:     int(MetricResetInvalidToken),
			IPThrottled:      int(MetricResetIPThrottled),
			RecordFailure:    int(MetricResetRecordFailure),
		},
		Errors: internalflows.PINResetErrors{
			EngineNotReady: ErrEngineNotReady,
			TokenRequired:  ErrTokenAndPINRequired,
			TokenInvalid:   ErrResetTokenInvalid,
			TokenExpired:   ErrResetTokenExpired,
			NotVerified:    ErrEmailNotVerified,
			PINPolicy:      ErrPINPolicy,
			MailFailed:     ErrMailDelivery,
			Unavailable:    ErrResetUnavailable,
		},
	}

	return deps
}

func toFlowUser(u UserRecord) internalflows.PINResetUser {
	return internalflows.PINResetUser{
		UserID:           u.UserID,
		Email:            u.Email,
		Verified:         u.Verified,
		ResetToken:       u.ResetToken,
		ResetTokenExpiry: u.ResetTokenExpiry,
	}
}

func (e *Engine) acquireIssueLock(ctx context.Context, userID string) (func(), error) {
	owner, err := internal.NewLockOwner()
	if err != nil {
		return nil, err
	}
	if err := e.issueLock.Acquire(ctx, userID, owner); err != nil {
		return nil, err
	}
	return func() {
		// The request ctx may already be done here.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := e.issueLock.Release(releaseCtx, userID, owner); err != nil {
			e.logger.Warn("pin reset issue lock release failed", zap.String("user_id", userID), zap.Error(err))
		}
	}, nil
}

func (e *Engine) sendResetMail(ctx context.Context, user internalflows.PINResetUser, token string, _ time.Time) error {
	msg, err := buildResetMessage(e.config, user.Email, token, e.config.Token.TTL)
	if err != nil {
		return err
	}

	if timeout := e.config.Mail.SendTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return e.mailer.Send(ctx, msg)
}

func (e *Engine) sleepEnumerationDelay(ctx context.Context) error {
	delay, err := internal.RandomDuration(e.config.Security.EnumerationDelayMin, e.config.Security.EnumerationDelayMax)
	if err != nil {
		return err
	}
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mapIdentityError(err error) error {
	switch {
	case errors.Is(err, identity.ErrMissing):
		return ErrEmailRequired
	case errors.Is(err, identity.ErrBadDomain):
		return ErrInvalidDomain
	default:
		return ErrInvalidEnrollmentID
	}
}

func mapPINResetLimiterError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, limiters.ErrResetRedisUnavailable) {
		return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
	return ErrResetUnavailable
}

func mapPINResetStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrResetTokenStale):
		return ErrResetTokenInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrResetUnavailable, err)
	}
}
