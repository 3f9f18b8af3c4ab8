package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"go.uber.org/zap"
)

type PINResetUser struct {
	UserID           string
	Email            string
	Verified         bool
	ResetToken       string
	ResetTokenExpiry time.Time
}

// LimitDecision mirrors a limiter check result.
type LimitDecision struct {
	Allowed bool
	ResetAt time.Time
}

type PINResetMetrics struct {
	Request          int
	RequestNeutral   int
	RequestContended int
	RateLimited      int
	MailFailure      int
	ConfirmSuccess   int
	ConfirmFailure   int
	InvalidToken     int
	IPThrottled      int
	RecordFailure    int
}

type PINResetErrors struct {
	EngineNotReady error
	TokenRequired  error
	TokenInvalid   error
	TokenExpired   error
	NotVerified    error
	PINPolicy      error
	MailFailed     error
	Unavailable    error
}

type PINResetDeps struct {
	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string
	Logger              *zap.Logger

	ValidateIdentity func(string) (string, error)

	CheckLimiter         func(context.Context, string) (LimitDecision, error)
	RecordLimiter        func(context.Context, string) error
	CheckInvalidConfirm  func(context.Context, string) (LimitDecision, error)
	RecordInvalidConfirm func(context.Context, string) error
	RateLimited          func(time.Time) error
	MapLimiterError      func(error) error

	GetUserByEmail func(context.Context, string) (PINResetUser, error)
	GetUserByID    func(context.Context, string) (PINResetUser, error)
	SetResetToken  func(context.Context, string, string, time.Time) error
	CompleteReset  func(context.Context, string, string, string, time.Time) error
	IsUserNotFound func(error) bool
	IsResetStale   func(error) bool
	MapStoreError  func(error) error

	AcquireIssueLock func(context.Context, string) (func(), error)
	IsLockHeld       func(error) bool

	IssueToken     func(string) (string, time.Time, error)
	ParseToken     func(string) (string, error)
	IsTokenExpired func(error) bool

	CheckPIN func(string) error
	HashPIN  func(string) (string, error)

	SendResetMail         func(context.Context, PINResetUser, string, time.Time) error
	SleepEnumerationDelay func(context.Context) error
	Fingerprint           func(string) string
	MaskEmail             func(string) string

	MetricInc func(int)

	Metrics PINResetMetrics
	Errors  PINResetErrors
}

// RunRequestPINReset validates email, checks the attempt budget and, for a
// known verified account, issues and mails a fresh reset token. Unknown
// accounts and lost issuance races return nil so callers answer neutrally.
func RunRequestPINReset(ctx context.Context, email string, deps PINResetDeps) error {
	normalizePINResetDeps(&deps)

	if deps.ValidateIdentity == nil ||
		deps.CheckLimiter == nil ||
		deps.RecordLimiter == nil ||
		deps.GetUserByEmail == nil ||
		deps.SetResetToken == nil ||
		deps.AcquireIssueLock == nil ||
		deps.IssueToken == nil ||
		deps.SendResetMail == nil {
		return deps.Errors.EngineNotReady
	}

	normalized, err := deps.ValidateIdentity(email)
	if err != nil {
		deps.Logger.Debug("pin reset request rejected", zap.Error(err))
		return err
	}
	log := deps.Logger.With(zap.String("email", deps.MaskEmail(normalized)))

	decision, err := deps.CheckLimiter(ctx, normalized)
	if err != nil {
		log.Warn("pin reset limiter check failed", zap.Error(err))
		return deps.MapLimiterError(err)
	}
	if !decision.Allowed {
		deps.MetricInc(deps.Metrics.RateLimited)
		log.Info("pin reset request rate limited", zap.Time("reset_at", decision.ResetAt))
		return deps.RateLimited(decision.ResetAt)
	}

	user, err := deps.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if !deps.IsUserNotFound(err) {
			log.Error("pin reset user lookup failed", zap.Error(err))
			return deps.MapStoreError(err)
		}
		if sleepErr := deps.SleepEnumerationDelay(ctx); sleepErr != nil {
			return sleepErr
		}
		deps.MetricInc(deps.Metrics.RequestNeutral)
		log.Debug("pin reset requested for unknown account")
		return nil
	}
	if !user.Verified {
		log.Info("pin reset requested for unverified account", zap.String("user_id", user.UserID))
		return deps.Errors.NotVerified
	}
	log = log.With(zap.String("user_id", user.UserID))

	release, err := deps.AcquireIssueLock(ctx, user.UserID)
	if err != nil {
		if deps.IsLockHeld(err) {
			deps.MetricInc(deps.Metrics.RequestContended)
			log.Debug("pin reset issuance already in progress")
			return nil
		}
		log.Error("pin reset issue lock failed", zap.Error(err))
		return deps.MapStoreError(err)
	}
	defer release()

	token, expiresAt, err := deps.IssueToken(user.UserID)
	if err != nil {
		log.Error("pin reset token issue failed", zap.Error(err))
		return deps.Errors.Unavailable
	}
	log = log.With(zap.String("token_fp", deps.Fingerprint(token)))

	if err := deps.SetResetToken(ctx, user.UserID, token, expiresAt); err != nil {
		log.Error("pin reset token persist failed", zap.Error(err))
		return deps.MapStoreError(err)
	}

	if err := deps.SendResetMail(ctx, user, token, expiresAt); err != nil {
		deps.MetricInc(deps.Metrics.MailFailure)
		log.Error("pin reset mail failed", zap.Error(err))
		return errors.Join(deps.Errors.MailFailed, err)
	}

	if err := deps.RecordLimiter(ctx, normalized); err != nil {
		deps.MetricInc(deps.Metrics.RecordFailure)
		log.Error("pin reset attempt record failed", zap.Error(err))
	}

	deps.MetricInc(deps.Metrics.Request)
	log.Info("pin reset token issued", zap.Time("expires_at", expiresAt))
	return nil
}

// RunVerifyResetToken checks token against its signature and the stored
// value and returns the owning user id.
func RunVerifyResetToken(ctx context.Context, token string, deps PINResetDeps) (string, error) {
	normalizePINResetDeps(&deps)

	if deps.ParseToken == nil || deps.GetUserByID == nil {
		return "", deps.Errors.EngineNotReady
	}
	if token == "" {
		return "", deps.Errors.TokenRequired
	}

	user, err := verifyResetToken(ctx, token, deps)
	if err != nil {
		return "", err
	}
	return user.UserID, nil
}

// RunConfirmPINReset verifies token, checks the owner's attempt budget and
// commits the new PIN hash while clearing the stored token in one update.
func RunConfirmPINReset(ctx context.Context, token, newPIN string, deps PINResetDeps) error {
	normalizePINResetDeps(&deps)

	if deps.ParseToken == nil ||
		deps.GetUserByID == nil ||
		deps.CheckLimiter == nil ||
		deps.RecordLimiter == nil ||
		deps.HashPIN == nil ||
		deps.CompleteReset == nil {
		return deps.Errors.EngineNotReady
	}
	if token == "" || newPIN == "" {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		return deps.Errors.TokenRequired
	}

	user, err := verifyResetToken(ctx, token, deps)
	if err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		return err
	}
	log := deps.Logger.With(
		zap.String("user_id", user.UserID),
		zap.String("email", deps.MaskEmail(user.Email)),
		zap.String("token_fp", deps.Fingerprint(token)),
	)

	decision, err := deps.CheckLimiter(ctx, user.Email)
	if err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		log.Warn("pin reset limiter check failed", zap.Error(err))
		return deps.MapLimiterError(err)
	}
	if !decision.Allowed {
		deps.MetricInc(deps.Metrics.RateLimited)
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		log.Info("pin reset confirm rate limited", zap.Time("reset_at", decision.ResetAt))
		return deps.RateLimited(decision.ResetAt)
	}

	if err := deps.CheckPIN(newPIN); err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		log.Debug("pin reset rejected new pin", zap.Error(err))
		return deps.Errors.PINPolicy
	}
	pinHash, err := deps.HashPIN(newPIN)
	if err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		log.Error("pin hash failed", zap.Error(err))
		return deps.Errors.Unavailable
	}

	if err := deps.CompleteReset(ctx, user.UserID, token, pinHash, deps.Now()); err != nil {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		if deps.IsResetStale(err) {
			deps.MetricInc(deps.Metrics.InvalidToken)
			log.Info("pin reset token superseded before commit")
			return deps.Errors.TokenInvalid
		}
		log.Error("pin reset commit failed", zap.Error(err))
		return deps.MapStoreError(err)
	}

	if err := deps.RecordLimiter(ctx, user.Email); err != nil {
		deps.MetricInc(deps.Metrics.RecordFailure)
		log.Error("pin reset attempt record failed", zap.Error(err))
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	log.Info("pin reset completed")
	return nil
}

func verifyResetToken(ctx context.Context, token string, deps PINResetDeps) (PINResetUser, error) {
	ip := deps.ClientIPFromContext(ctx)
	log := deps.Logger.With(zap.String("token_fp", deps.Fingerprint(token)))

	decision, err := deps.CheckInvalidConfirm(ctx, ip)
	if err != nil {
		log.Warn("invalid confirm throttle check failed", zap.Error(err))
		return PINResetUser{}, deps.MapLimiterError(err)
	}
	if !decision.Allowed {
		deps.MetricInc(deps.Metrics.IPThrottled)
		deps.MetricInc(deps.Metrics.RateLimited)
		log.Info("pin reset confirm throttled by ip", zap.String("ip", ip))
		return PINResetUser{}, deps.RateLimited(decision.ResetAt)
	}

	reject := func(reason string, err error) (PINResetUser, error) {
		deps.MetricInc(deps.Metrics.InvalidToken)
		if recErr := deps.RecordInvalidConfirm(ctx, ip); recErr != nil {
			log.Warn("invalid confirm record failed", zap.Error(recErr))
		}
		log.Info("pin reset token rejected", zap.String("reason", reason))
		return PINResetUser{}, err
	}

	userID, err := deps.ParseToken(token)
	if err != nil {
		if deps.IsTokenExpired(err) {
			return reject("jwt_expired", deps.Errors.TokenExpired)
		}
		return reject("jwt_invalid", deps.Errors.TokenInvalid)
	}

	user, err := deps.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return PINResetUser{}, err
		}
		if deps.IsUserNotFound(err) {
			return reject("unknown_user", deps.Errors.TokenInvalid)
		}
		log.Error("pin reset user lookup failed", zap.Error(err))
		return PINResetUser{}, deps.MapStoreError(err)
	}

	if user.ResetToken == "" || subtle.ConstantTimeCompare([]byte(user.ResetToken), []byte(token)) != 1 {
		return reject("not_stored", deps.Errors.TokenInvalid)
	}
	if !user.ResetTokenExpiry.After(deps.Now()) {
		return reject("stored_expired", deps.Errors.TokenExpired)
	}

	return user, nil
}

func normalizePINResetDeps(deps *PINResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.CheckInvalidConfirm == nil {
		deps.CheckInvalidConfirm = func(context.Context, string) (LimitDecision, error) {
			return LimitDecision{Allowed: true}, nil
		}
	}
	if deps.RecordInvalidConfirm == nil {
		deps.RecordInvalidConfirm = func(context.Context, string) error { return nil }
	}
	if deps.RateLimited == nil {
		deps.RateLimited = func(time.Time) error { return deps.Errors.Unavailable }
	}
	if deps.MapLimiterError == nil {
		deps.MapLimiterError = func(error) error { return deps.Errors.Unavailable }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(error) error { return deps.Errors.Unavailable }
	}
	if deps.IsUserNotFound == nil {
		deps.IsUserNotFound = func(error) bool { return false }
	}
	if deps.IsResetStale == nil {
		deps.IsResetStale = func(error) bool { return false }
	}
	if deps.IsLockHeld == nil {
		deps.IsLockHeld = func(error) bool { return false }
	}
	if deps.IsTokenExpired == nil {
		deps.IsTokenExpired = func(error) bool { return false }
	}
	if deps.CheckPIN == nil {
		deps.CheckPIN = func(string) error { return nil }
	}
	if deps.SleepEnumerationDelay == nil {
		deps.SleepEnumerationDelay = func(context.Context) error { return nil }
	}
	if deps.Fingerprint == nil {
		deps.Fingerprint = func(string) string { return "" }
	}
	if deps.MaskEmail == nil {
		deps.MaskEmail = func(s string) string { return s }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
}
