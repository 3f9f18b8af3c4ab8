// Package memory provides an in-process [pinreset.UserStore] for tests,
// demos and single-instance deployments.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/pinreset"
)

// Store keeps user records in maps guarded by one mutex, so every method is
// a single atomic step.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]pinreset.UserRecord
	byEmail map[string]string
}

func New() *Store {
	return &Store{
		byID:    make(map[string]pinreset.UserRecord),
		byEmail: make(map[string]string),
	}
}

// Put inserts or replaces u. Emails are matched case-insensitively.
func (s *Store) Put(u pinreset.UserRecord) error {
	if u.UserID == "" || u.Email == "" {
		return errors.New("user id and email are required")
	}
	key := emailKey(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byEmail[key]; ok && owner != u.UserID {
		return errors.New("email already registered")
	}
	if prev, ok := s.byID[u.UserID]; ok {
		delete(s.byEmail, emailKey(prev.Email))
	}
	s.byID[u.UserID] = u
	s.byEmail[key] = u.UserID
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (pinreset.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return pinreset.UserRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return pinreset.UserRecord{}, pinreset.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (pinreset.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return pinreset.UserRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return pinreset.UserRecord{}, pinreset.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return pinreset.ErrUserNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpiry = expiresAt
	s.byID[userID] = u
	return nil
}

func (s *Store) CompleteReset(ctx context.Context, userID, expectedToken, pinHash string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return pinreset.ErrUserNotFound
	}
	if u.ResetToken == "" || u.ResetToken != expectedToken || !u.ResetTokenExpiry.After(now) {
		return pinreset.ErrResetTokenStale
	}
	u.PINHash = pinHash
	u.ResetToken = ""
	u.ResetTokenExpiry = time.Time{}
	s.byID[userID] = u
	return nil
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
