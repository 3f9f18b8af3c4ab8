package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"
)

const (
	lockOwnerSize   = 16
	fingerprintSize = 8
)

// NewLockOwner returns a random opaque owner value for a Redis lease.
func NewLockOwner() (string, error) {
	var raw [lockOwnerSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// TokenFingerprint returns a short, non-reversible tag for logging a token.
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:fingerprintSize])
}

// RandomDuration returns a uniformly random duration in [min, max].
func RandomDuration(min, max time.Duration) (time.Duration, error) {
	if min < 0 || max < min {
		return 0, errors.New("invalid duration range")
	}
	span := uint64(max - min)
	if span == 0 {
		return min, nil
	}

	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return 0, err
	}
	return min + time.Duration(binary.BigEndian.Uint64(raw[:])%(span+1)), nil
}
