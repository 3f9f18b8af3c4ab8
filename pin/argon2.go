package pin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// ErrMalformedHash is returned by [Argon2.Verify] and [Argon2.NeedsUpgrade]
// for stored hashes that are neither Argon2id PHC nor bcrypt.
var ErrMalformedHash = errors.New("malformed pin hash")

// Config holds Argon2id cost parameters and the PIN shape policy.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	Policy      Policy
}

// Argon2 hashes and verifies PINs.
//
// Argon2 is safe for concurrent use.
type Argon2 struct {
	config Config
}

// phc is a decoded $argon2id$ string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.key),
	)
}

func (p phc) derive(value string) []byte {
	return argon2.IDKey([]byte(value), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
}

// NewArgon2 validates cfg and returns a hasher. A zero Policy is replaced by
// [DefaultPolicy].
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Argon2{config: cfg}, nil
}

// Hash checks value against the PIN policy and returns its PHC encoding.
// Policy failures wrap [ErrPolicy].
func (a *Argon2) Hash(value string) (string, error) {
	if err := a.config.Policy.Check(value); err != nil {
		return "", err
	}

	p := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
		key:         make([]byte, a.config.KeyLength),
	}
	if _, err := io.ReadFull(rand.Reader, p.salt); err != nil {
		return "", err
	}
	p.key = p.derive(value)

	return p.String(), nil
}

// Verify reports whether value matches encodedHash. Both Argon2id PHC and
// legacy bcrypt encodings are accepted.
func (a *Argon2) Verify(value string, encodedHash string) (bool, error) {
	if isBcryptHash(encodedHash) {
		return verifyBcrypt(value, encodedHash)
	}

	p, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(p.derive(value), p.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the current configuration, or by bcrypt.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	if isBcryptHash(encodedHash) {
		return true, nil
	}

	p, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	weaker := p.memory < a.config.Memory ||
		p.time < a.config.Time ||
		p.parallelism < a.config.Parallelism ||
		uint32(len(p.key)) != a.config.KeyLength
	return weaker, nil
}

func decodePHC(encoded string) (phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithmID {
		return phc{}, fmt.Errorf("%w: not an %s string", ErrMalformedHash, algorithmID)
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return phc{}, fmt.Errorf("%w: version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return phc{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedHash, version)
	}

	var (
		p           phc
		parallelism uint32
	)
	n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &parallelism)
	if err != nil || n != 3 || fields[3] != fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.time, parallelism) {
		return phc{}, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	if p.memory < minMemoryKB || p.time < minTimeCost || parallelism < uint32(minParallelism) || parallelism > 255 {
		return phc{}, fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}
	p.parallelism = uint8(parallelism)

	if p.salt, err = base64.StdEncoding.DecodeString(fields[4]); err != nil || len(p.salt) < int(minSaltLength) {
		return phc{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if p.key, err = base64.StdEncoding.DecodeString(fields[5]); err != nil || len(p.key) == 0 {
		return phc{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}

	return p, nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return fmt.Errorf("pin memory must be >= %d KB", minMemoryKB)
	case cfg.Time < minTimeCost:
		return errors.New("pin time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return errors.New("pin parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return fmt.Errorf("pin salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return fmt.Errorf("pin key length must be >= %d", minKeyLength)
	}

	return cfg.Policy.validate()
}
