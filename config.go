package pinreset

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config is the complete engine configuration. Start from [DefaultConfig]
// and fill in the secrets; [Config.Validate] rejects a config without them.
type Config struct {
	Institution InstitutionConfig
	Token       TokenConfig
	RateLimit   RateLimitConfig
	IssueLock   IssueLockConfig
	Mail        MailConfig
	PIN         PINConfig
	Metrics     MetricsConfig
	Security    SecurityConfig
}

// InstitutionConfig identifies whose accounts the engine serves.
type InstitutionConfig struct {
	// EmailDomain is matched as an exact "@domain" suffix.
	EmailDomain string
	// Name appears in reset emails.
	Name string
}

// TokenConfig configures reset token signing.
type TokenConfig struct {
	TTL           time.Duration
	SigningMethod string
	// SigningKey is the HS256 secret or the Ed25519 private key. No default.
	SigningKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
}

// RateLimitConfig is the per-identity attempt budget shared by both phases.
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
	RedisPrefix string
}

// IssueLockConfig bounds the per-user issuance lease.
type IssueLockConfig struct {
	TTL         time.Duration
	RedisPrefix string
}

// MailConfig shapes the reset email.
type MailConfig struct {
	// ResetURLBase is the application origin; the link is <base>/reset-pin?token=...
	ResetURLBase string
	From         string
	Subject      string
	// SendTimeout bounds one delivery. It must be positive and shorter than
	// IssueLock.TTL so the lock outlives the send it guards.
	SendTimeout time.Duration
}

// PINConfig holds the PIN shape policy and Argon2id cost parameters.
type PINConfig struct {
	MinDigits   int
	MaxDigits   int
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig holds abuse controls beyond the attempt budget.
type SecurityConfig struct {
	// EnableIPThrottle limits invalid confirm tokens per client IP.
	EnableIPThrottle        bool
	MaxInvalidConfirmsPerIP int
	InvalidConfirmWindow    time.Duration
	// EnumerationDelayMin and EnumerationDelayMax bound the random delay added
	// when a reset is requested for an unknown account.
	EnumerationDelayMin time.Duration
	EnumerationDelayMax time.Duration
}

// DefaultConfig returns production defaults without secrets.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Institution: InstitutionConfig{
			EmailDomain: "curaj.ac.in",
			Name:        "Blind CURAJ",
		},
		Token: TokenConfig{
			TTL:           30 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "pinreset",
			Audience:      "pin-reset",
		},
		RateLimit: RateLimitConfig{
			MaxAttempts: 3,
			Window:      time.Hour,
			RedisPrefix: "prl",
		},
		IssueLock: IssueLockConfig{
			TTL:         15 * time.Second,
			RedisPrefix: "pil",
		},
		Mail: MailConfig{
			Subject:     "Reset Your PIN",
			SendTimeout: 10 * time.Second,
		},
		PIN: PINConfig{
			MinDigits:   4,
			MaxDigits:   6,
			Memory:      64 * 1024,
			Time:        1,
			Parallelism: 4,
			SaltLength:  16,
			KeyLength:   32,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Security: SecurityConfig{
			EnableIPThrottle:        true,
			MaxInvalidConfirmsPerIP: 20,
			InvalidConfirmWindow:    15 * time.Minute,
			EnumerationDelayMin:     20 * time.Millisecond,
			EnumerationDelayMax:     40 * time.Millisecond,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningKey = cloneBytes(cfg.Token.SigningKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid or missing setting.
func (c *Config) Validate() error {
	// Institution
	if strings.TrimPrefix(strings.TrimSpace(c.Institution.EmailDomain), "@") == "" {
		return errors.New("Institution EmailDomain is required")
	}

	// Token
	if c.Token.TTL <= 0 {
		return errors.New("Token TTL must be > 0")
	}
	if c.Token.SigningMethod != "hs256" && c.Token.SigningMethod != "ed25519" {
		return errors.New("unsupported Token SigningMethod")
	}
	if len(c.Token.SigningKey) == 0 {
		return errors.New("Token SigningKey is required")
	}
	if c.Token.SigningMethod == "hs256" && len(c.Token.SigningKey) < 32 {
		return errors.New("Token SigningKey must be >= 32 bytes for hs256")
	}

	// Rate limit
	if c.RateLimit.MaxAttempts <= 0 {
		return errors.New("RateLimit MaxAttempts must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RateLimit Window must be > 0")
	}

	// Issue lock
	if c.IssueLock.TTL <= 0 {
		return errors.New("IssueLock TTL must be > 0")
	}
	if c.Mail.SendTimeout <= 0 {
		return errors.New("Mail SendTimeout must be > 0")
	}
	if c.IssueLock.TTL <= c.Mail.SendTimeout {
		return errors.New("IssueLock TTL must exceed Mail SendTimeout")
	}

	// Mail
	if strings.TrimSpace(c.Mail.ResetURLBase) == "" {
		return errors.New("Mail ResetURLBase is required")
	}
	u, err := url.Parse(c.Mail.ResetURLBase)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("Mail ResetURLBase must be an absolute http(s) URL")
	}

	// PIN
	if c.PIN.MinDigits < 4 {
		return errors.New("PIN MinDigits must be >= 4")
	}
	if c.PIN.MaxDigits < c.PIN.MinDigits {
		return errors.New("PIN MaxDigits must be >= MinDigits")
	}
	if c.PIN.MaxDigits > 12 {
		return errors.New("PIN MaxDigits must be <= 12")
	}
	if c.PIN.Memory < 8*1024 {
		return errors.New("PIN Memory must be >= 8192 KB")
	}
	if c.PIN.Time < 1 {
		return errors.New("PIN Time must be >= 1")
	}
	if c.PIN.Parallelism < 1 {
		return errors.New("PIN Parallelism must be >= 1")
	}
	if c.PIN.SaltLength < 16 {
		return errors.New("PIN SaltLength must be >= 16")
	}
	if c.PIN.KeyLength < 16 {
		return errors.New("PIN KeyLength must be >= 16")
	}

	// Security
	if c.Security.EnableIPThrottle {
		if c.Security.MaxInvalidConfirmsPerIP <= 0 {
			return errors.New("Security MaxInvalidConfirmsPerIP must be > 0 when EnableIPThrottle is true")
		}
		if c.Security.InvalidConfirmWindow <= 0 {
			return errors.New("Security InvalidConfirmWindow must be > 0 when EnableIPThrottle is true")
		}
	}
	if c.Security.EnumerationDelayMin < 0 || c.Security.EnumerationDelayMax < c.Security.EnumerationDelayMin {
		return errors.New("Security EnumerationDelay range is invalid")
	}

	return nil
}
