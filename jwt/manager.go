package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the reset token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret held in Config.PrivateKey.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

const (
	resetPurpose       = "pin_reset"
	minHS256SecretSize = 32
)

var (
	// ErrTokenMalformed is returned for input that is not a parseable JWT.
	ErrTokenMalformed = errors.New("reset token malformed")
	// ErrTokenInvalid is returned when signature, purpose, or claims do not verify.
	ErrTokenInvalid = errors.New("reset token invalid")
	// ErrTokenExpired is returned when the embedded expiry has passed.
	ErrTokenExpired = errors.New("reset token expired")
)

// Config configures a reset token [Manager].
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Now           func() time.Time
}

// ResetClaims are the claims carried by a reset token. Subject holds the user id.
type ResetClaims struct {
	Purpose string `json:"pur"`
	jwt.RegisteredClaims
}

// Manager signs and verifies reset tokens. It is safe for concurrent use.
type Manager struct {
	config  Config
	signKey interface{}
	verKey  interface{}
}

// NewManager validates cfg and resolves the signing keys once.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)

	m := &Manager{config: cfg}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHS256SecretSize {
			return nil, fmt.Errorf("hs256 requires a secret of at least %d bytes", minHS256SecretSize)
		}
		m.signKey = cfg.PrivateKey
		m.verKey = cfg.PrivateKey
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		m.signKey = priv
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return nil, err
			}
			m.verKey = pub
		} else {
			m.verKey = priv.Public()
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

// TTL returns the configured validity window.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// IssueReset mints a token bound to userID. The returned expiry is the exact
// instant encoded in the token and is what callers must persist.
func (m *Manager) IssueReset(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("reset token requires user id")
	}

	now := m.config.Now().Truncate(time.Second)
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(now.Add(m.config.TTL))

	claims := ResetClaims{
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  issuedAt,
			NotBefore: issuedAt,
			ExpiresAt: expiresAt,
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token, err := jwt.NewWithClaims(m.method(), claims).SignedString(m.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign reset token: %w", err)
	}

	return token, expiresAt.Time, nil
}

// ParseReset verifies the signature and claims of token and returns the
// owning user id.
func (m *Manager) ParseReset(token string) (string, error) {
	if token == "" || strings.Count(token, ".") != 2 {
		return "", ErrTokenMalformed
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithTimeFunc(m.config.Now),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &ResetClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrTokenMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrTokenExpired
		default:
			return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	claims, ok := parsed.Claims.(*ResetClaims)
	if !ok || !parsed.Valid {
		return "", ErrTokenInvalid
	}
	if claims.Purpose != resetPurpose || claims.Subject == "" || claims.ID == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
