package pinreset

import (
	"errors"
	"time"

	"github.com/MrEthical07/pinreset/internal/identity"
	"github.com/MrEthical07/pinreset/internal/limiters"
	"github.com/MrEthical07/pinreset/internal/stores"
	"github.com/MrEthical07/pinreset/jwt"
	"github.com/MrEthical07/pinreset/pin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder can be used for one Build call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users  UserStore
	mailer Mailer
	hasher PINHasher
	logger *zap.Logger
	now    func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the rate limiter and issuance lock.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithPINHasher replaces the Argon2id hasher built from Config.PIN.
func (b *Builder) WithPINHasher(h PINHasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// withClock overrides the engine clock in tests.
func (b *Builder) withClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	policy := pin.Policy{MinDigits: cfg.PIN.MinDigits, MaxDigits: cfg.PIN.MaxDigits}
	hasher := b.hasher
	if hasher == nil {
		ph, err := pin.NewArgon2(pin.Config{
			Memory:      cfg.PIN.Memory,
			Time:        cfg.PIN.Time,
			Parallelism: cfg.PIN.Parallelism,
			SaltLength:  cfg.PIN.SaltLength,
			KeyLength:   cfg.PIN.KeyLength,
			Policy:      policy,
		})
		if err != nil {
			return nil, err
		}
		hasher = ph
	}

	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.Token.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.SigningKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Audience:      cfg.Token.Audience,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		identity: identity.New(cfg.Institution.EmailDomain),
		limiter: limiters.NewPINResetLimiter(b.redis, limiters.PINResetConfig{
			Prefix:                  cfg.RateLimit.RedisPrefix,
			MaxAttempts:             cfg.RateLimit.MaxAttempts,
			Window:                  cfg.RateLimit.Window,
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			MaxInvalidConfirmsPerIP: cfg.Security.MaxInvalidConfirmsPerIP,
			InvalidConfirmWindow:    cfg.Security.InvalidConfirmWindow,
		}),
		issueLock: stores.NewIssueLock(b.redis, cfg.IssueLock.RedisPrefix, cfg.IssueLock.TTL),
		tokens:    jm,
		hasher:    hasher,
		policy:    policy,
		users:     b.users,
		mailer:    b.mailer,
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		now:       now,
	}

	b.built = true

	return engine, nil
}
