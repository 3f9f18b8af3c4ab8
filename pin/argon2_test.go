package pin

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func secureConfig() Config {
	return Config{
		Memory:      65536,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newHasher(t *testing.T) *Argon2 {
	t.Helper()
	hasher, err := NewArgon2(secureConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return hasher
}

func TestHashAndVerify(t *testing.T) {
	hasher := newHasher(t)

	hash, err := hasher.Hash("4821")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("4821", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected pin verification to succeed")
	}
}

func TestVerifyWrongPIN(t *testing.T) {
	hasher := newHasher(t)

	hash, err := hasher.Hash("123456")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := hasher.Verify("123457", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong pin verification to fail")
	}
}

func TestHashSaltsEachCall(t *testing.T) {
	hasher := newHasher(t)

	first, err := hasher.Hash("1234")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := hasher.Hash("1234")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same pin")
	}
}

func TestHashPolicy(t *testing.T) {
	hasher := newHasher(t)

	for _, value := range []string{"", "123", "1234567", "12a4", "12 34", "١٢٣٤"} {
		if _, err := hasher.Hash(value); !errors.Is(err, ErrPolicy) {
			t.Fatalf("Hash(%q) expected ErrPolicy, got %v", value, err)
		}
	}
	for _, value := range []string{"0000", "12345", "987654"} {
		if _, err := hasher.Hash(value); err != nil {
			t.Fatalf("Hash(%q) expected success, got %v", value, err)
		}
	}
}

func TestCustomPolicy(t *testing.T) {
	cfg := secureConfig()
	cfg.Policy = Policy{MinDigits: 6, MaxDigits: 8}
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	if _, err := hasher.Hash("1234"); !errors.Is(err, ErrPolicy) {
		t.Fatalf("expected 4-digit pin to be rejected, got %v", err)
	}
	if _, err := hasher.Hash("12345678"); err != nil {
		t.Fatalf("expected 8-digit pin to be accepted, got %v", err)
	}
}

func TestNeedsUpgrade(t *testing.T) {
	oldHasher, err := NewArgon2(Config{
		Memory:      32768,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2(old) error: %v", err)
	}

	hash, err := oldHasher.Hash("2468")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	needsUpgrade, err := newHasher(t).NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !needsUpgrade {
		t.Fatal("expected NeedsUpgrade to return true for weaker hash parameters")
	}
}

func TestNeedsUpgradeSameConfig(t *testing.T) {
	hasher := newHasher(t)

	hash, err := hasher.Hash("1357")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	needsUpgrade, err := hasher.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if needsUpgrade {
		t.Fatal("expected NeedsUpgrade to return false for current parameters")
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	hasher := newHasher(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}

	ok, err := hasher.Verify("1234", string(legacy))
	if err != nil || !ok {
		t.Fatalf("expected legacy bcrypt hash to verify, ok=%v err=%v", ok, err)
	}
	ok, err = hasher.Verify("4321", string(legacy))
	if err != nil || ok {
		t.Fatalf("expected wrong pin against bcrypt to fail cleanly, ok=%v err=%v", ok, err)
	}

	needsUpgrade, err := hasher.NeedsUpgrade(string(legacy))
	if err != nil || !needsUpgrade {
		t.Fatalf("expected bcrypt hash to need upgrade, got %v err=%v", needsUpgrade, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := newHasher(t)

	for _, encoded := range []string{
		"not-a-phc-hash",
		"$argon2id$v=19$m=65536,t=3$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=2,x=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=3,p=2$short$a2V5",
	} {
		if _, err := hasher.Verify("1234", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("Verify(%q) err = %v, want ErrMalformedHash", encoded, err)
		}
	}
}

func TestVerifyWrongVersion(t *testing.T) {
	hasher := newHasher(t)

	hash, err := hasher.Hash("8080")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	wrongVersion := strings.Replace(hash, "$v=19$", "$v=18$", 1)
	if _, err := hasher.Verify("8080", wrongVersion); err == nil {
		t.Fatal("expected unsupported version verification to fail")
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cfg := secureConfig()
	cfg.Memory = 1024
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected low memory to be rejected")
	}

	cfg = secureConfig()
	cfg.Policy = Policy{MinDigits: 3, MaxDigits: 6}
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected 3-digit minimum to be rejected")
	}

	cfg = secureConfig()
	cfg.Policy = Policy{MinDigits: 6, MaxDigits: 4}
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected inverted policy bounds to be rejected")
	}
}
