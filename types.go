package pinreset

import (
	"context"
	"time"
)

// UserRecord is the account view the reset flows read and write.
// ResetToken and ResetTokenExpiry are either both set or both zero.
type UserRecord struct {
	UserID           string
	Email            string
	EnrollmentID     string
	Verified         bool
	PINHash          string
	ResetToken       string
	ResetTokenExpiry time.Time
}

// UserStore persists accounts. Implementations must be safe for concurrent use.
type UserStore interface {
	// GetUserByEmail returns ErrUserNotFound when no account has email.
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	// GetUserByID returns ErrUserNotFound when no account has userID.
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	// SetResetToken stores token and expiresAt together in one update,
	// replacing any previous pair.
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// CompleteReset sets pinHash and clears the token pair in one update, but
	// only while the stored token equals expectedToken and its expiry is after
	// now. Otherwise it returns ErrResetTokenStale and changes nothing.
	CompleteReset(ctx context.Context, userID, expectedToken, pinHash string, now time.Time) error
}

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers messages. Send must honor ctx cancellation.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// PINHasher derives the stored form of a PIN.
type PINHasher interface {
	Hash(pin string) (string, error)
}
