package pinreset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrEmailRequired is returned when the request carries no email.
	ErrEmailRequired = errors.New("email is required")
	// ErrInvalidDomain is returned when the email is outside the institution domain.
	ErrInvalidDomain = errors.New("invalid email domain")
	// ErrInvalidEnrollmentID is returned when the local part is not an enrollment ID.
	ErrInvalidEnrollmentID = errors.New("invalid enrollment id format")
	// ErrTokenAndPINRequired is returned when a confirm request lacks token or PIN.
	ErrTokenAndPINRequired = errors.New("token and new pin are required")
	// ErrPINPolicy is returned when the new PIN does not satisfy the PIN policy.
	ErrPINPolicy = errors.New("pin policy violation")

	// ErrEmailNotVerified is returned for a reset request against an unverified account.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrResetTokenInvalid covers malformed, forged, superseded and consumed tokens.
	ErrResetTokenInvalid = errors.New("reset token invalid")
	// ErrResetTokenExpired is returned once the stored expiry is not in the future.
	ErrResetTokenExpired = errors.New("reset token expired")

	// ErrRateLimited is matched by every [*RateLimitError].
	ErrRateLimited = errors.New("too many reset attempts")

	// ErrResetUnavailable is returned when a backing store or the limiter fails.
	ErrResetUnavailable = errors.New("pin reset backend unavailable")
	// ErrMailDelivery is returned when the reset email could not be sent.
	ErrMailDelivery = errors.New("reset mail delivery failed")

	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")

	// ErrUserNotFound is returned by UserStore lookups for unknown accounts.
	ErrUserNotFound = errors.New("user not found")
	// ErrResetTokenStale is returned by UserStore.CompleteReset when the stored
	// token no longer matches or has expired.
	ErrResetTokenStale = errors.New("reset token stale")
)

// RateLimitError reports a rejected attempt and when the window reopens.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (resets at %s)", ErrRateLimited.Error(), e.ResetAt.UTC().Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrRateLimited) hold.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfterMinutes returns the whole minutes until resetAt, rounded up and
// never less than one.
func RetryAfterMinutes(resetAt, now time.Time) int {
	minutes := int(math.Ceil(resetAt.Sub(now).Minutes()))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// ErrorKind groups errors by how a caller should respond.
type ErrorKind int

const (
	// KindUnknown is returned for nil and unrecognized errors.
	KindUnknown ErrorKind = iota
	// KindValidation marks malformed client input.
	KindValidation
	// KindAuthz marks well-formed input that is refused.
	KindAuthz
	// KindRateLimit marks an exhausted attempt budget.
	KindRateLimit
	// KindDependency marks a failure of the store, limiter, hasher or mailer.
	KindDependency
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthz:
		return "authz"
	case KindRateLimit:
		return "rate_limit"
	case KindDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrRateLimited):
		return KindRateLimit
	case errors.Is(err, ErrEmailRequired),
		errors.Is(err, ErrInvalidDomain),
		errors.Is(err, ErrInvalidEnrollmentID),
		errors.Is(err, ErrTokenAndPINRequired),
		errors.Is(err, ErrPINPolicy):
		return KindValidation
	case errors.Is(err, ErrEmailNotVerified),
		errors.Is(err, ErrResetTokenInvalid),
		errors.Is(err, ErrResetTokenExpired):
		return KindAuthz
	case errors.Is(err, ErrResetUnavailable),
		errors.Is(err, ErrMailDelivery),
		errors.Is(err, ErrEngineNotReady):
		return KindDependency
	default:
		return KindUnknown
	}
}
