package identity

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrMissing             = errors.New("email is required")
	ErrBadDomain           = errors.New("email domain does not match institution")
	ErrBadEnrollmentFormat = errors.New("invalid enrollment id format")
)

// maxEmailLength is the RFC 5321 path limit. Longer input fails the format
// rule, after the domain rule has had its turn.
const maxEmailLength = 320

var enrollmentPattern = regexp.MustCompile(`^[0-9]{4}[A-Z]+[0-9]{3}$`)

// Identity is a validated institutional address.
type Identity struct {
	Email        string
	EnrollmentID string
}

// Validator checks addresses against a single institution domain.
type Validator struct {
	suffix string
}

// New returns a Validator for domain. The domain may be given with or
// without the leading "@".
func New(domain string) *Validator {
	domain = strings.TrimPrefix(strings.TrimSpace(domain), "@")
	return &Validator{suffix: "@" + domain}
}

// Validate applies the rules in order and returns the first failure.
func (v *Validator) Validate(email string) (Identity, error) {
	if email == "" {
		return Identity{}, ErrMissing
	}
	if v == nil || v.suffix == "@" || !strings.HasSuffix(email, v.suffix) {
		return Identity{}, ErrBadDomain
	}

	if len(email) > maxEmailLength {
		return Identity{}, ErrBadEnrollmentFormat
	}

	local := strings.TrimSuffix(email, v.suffix)
	enrollmentID := strings.ToUpper(local)
	if !enrollmentPattern.MatchString(enrollmentID) {
		return Identity{}, ErrBadEnrollmentFormat
	}

	return Identity{
		Email:        email,
		EnrollmentID: enrollmentID,
	}, nil
}
