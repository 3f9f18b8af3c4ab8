package flows

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errNotReady     = errors.New("not ready")
	errTokenReq     = errors.New("token required")
	errTokenInvalid = errors.New("token invalid")
	errTokenExpired = errors.New("token expired")
	errNotVerified  = errors.New("not verified")
	errPolicy       = errors.New("policy")
	errMail         = errors.New("mail failed")
	errUnavailable  = errors.New("unavailable")
	errRateLimited  = errors.New("rate limited")
	errNotFound     = errors.New("not found")
	errStale        = errors.New("stale")
	errLockHeld     = errors.New("lock held")
	errJWTExpired   = errors.New("jwt expired")
	errBadDomain    = errors.New("bad domain")
)

type resetHarness struct {
	now      time.Time
	users    map[string]PINResetUser
	budget   int
	attempts map[string]int
	invalid  map[string]int

	lockHeld   bool
	mailErr    error
	recordErr  error
	staleOnCAS bool

	issued    int
	mailed    int
	lookups   int
	hashed    int
	committed []string
}

func newResetHarness() *resetHarness {
	now := time.Unix(1_700_000_000, 0)
	return &resetHarness{
		now:    now,
		budget: 3,
		users: map[string]PINResetUser{
			"u1": {UserID: "u1", Email: "2019cs001@curaj.ac.in", Verified: true},
			"u2": {UserID: "u2", Email: "2019cs002@curaj.ac.in", Verified: false},
		},
		attempts: map[string]int{},
		invalid:  map[string]int{},
	}
}

func (h *resetHarness) deps() PINResetDeps {
	return PINResetDeps{
		Now: func() time.Time { return h.now },
		ClientIPFromContext: func(ctx context.Context) string {
			ip, _ := ctx.Value(ipKey{}).(string)
			return ip
		},
		ValidateIdentity: func(email string) (string, error) {
			if email == "" {
				return "", errTokenReq
			}
			if email == "bad@example.com" {
				return "", errBadDomain
			}
			return email, nil
		},
		CheckLimiter: func(_ context.Context, email string) (LimitDecision, error) {
			return LimitDecision{Allowed: h.attempts[email] < h.budget, ResetAt: h.now.Add(time.Hour)}, nil
		},
		RecordLimiter: func(_ context.Context, email string) error {
			if h.recordErr != nil {
				return h.recordErr
			}
			h.attempts[email]++
			return nil
		},
		CheckInvalidConfirm: func(_ context.Context, ip string) (LimitDecision, error) {
			return LimitDecision{Allowed: ip == "" || h.invalid[ip] < 2, ResetAt: h.now.Add(10 * time.Minute)}, nil
		},
		RecordInvalidConfirm: func(_ context.Context, ip string) error {
			if ip != "" {
				h.invalid[ip]++
			}
			return nil
		},
		RateLimited: func(time.Time) error { return errRateLimited },
		GetUserByEmail: func(_ context.Context, email string) (PINResetUser, error) {
			h.lookups++
			for _, u := range h.users {
				if u.Email == email {
					return u, nil
				}
			}
			return PINResetUser{}, errNotFound
		},
		GetUserByID: func(_ context.Context, id string) (PINResetUser, error) {
			u, ok := h.users[id]
			if !ok {
				return PINResetUser{}, errNotFound
			}
			return u, nil
		},
		SetResetToken: func(_ context.Context, id, token string, exp time.Time) error {
			u := h.users[id]
			u.ResetToken = token
			u.ResetTokenExpiry = exp
			h.users[id] = u
			return nil
		},
		CompleteReset: func(_ context.Context, id, token, hash string, now time.Time) error {
			u := h.users[id]
			if h.staleOnCAS || u.ResetToken != token || !u.ResetTokenExpiry.After(now) {
				return errStale
			}
			u.ResetToken = ""
			u.ResetTokenExpiry = time.Time{}
			h.users[id] = u
			h.committed = append(h.committed, hash)
			return nil
		},
		IsUserNotFound: func(err error) bool { return errors.Is(err, errNotFound) },
		IsResetStale:   func(err error) bool { return errors.Is(err, errStale) },
		AcquireIssueLock: func(context.Context, string) (func(), error) {
			if h.lockHeld {
				return nil, errLockHeld
			}
			return func() {}, nil
		},
		IsLockHeld: func(err error) bool { return errors.Is(err, errLockHeld) },
		IssueToken: func(id string) (string, time.Time, error) {
			h.issued++
			return "tok-" + id + "-" + string(rune('0'+h.issued)), h.now.Add(30 * time.Minute), nil
		},
		ParseToken: func(token string) (string, error) {
			switch {
			case token == "expired-jwt":
				return "", errJWTExpired
			case len(token) > 6 && token[:4] == "tok-":
				return token[4:6], nil
			}
			return "", errTokenInvalid
		},
		IsTokenExpired: func(err error) bool { return errors.Is(err, errJWTExpired) },
		CheckPIN: func(pin string) error {
			if len(pin) < 4 {
				return errPolicy
			}
			return nil
		},
		HashPIN: func(pin string) (string, error) {
			h.hashed++
			return "hash:" + pin, nil
		},
		SendResetMail: func(context.Context, PINResetUser, string, time.Time) error {
			if h.mailErr != nil {
				return h.mailErr
			}
			h.mailed++
			return nil
		},
		Errors: PINResetErrors{
			EngineNotReady: errNotReady,
			TokenRequired:  errTokenReq,
			TokenInvalid:   errTokenInvalid,
			TokenExpired:   errTokenExpired,
			NotVerified:    errNotVerified,
			PINPolicy:      errPolicy,
			MailFailed:     errMail,
			Unavailable:    errUnavailable,
		},
	}
}

type ipKey struct{}

const userEmail = "2019cs001@curaj.ac.in"

func TestRequestPINResetIssuesAndRecords(t *testing.T) {
	h := newResetHarness()
	if err := RunRequestPINReset(context.Background(), userEmail, h.deps()); err != nil {
		t.Fatalf("request: %v", err)
	}
	if h.issued != 1 || h.mailed != 1 {
		t.Fatalf("expected one token mailed, issued=%d mailed=%d", h.issued, h.mailed)
	}
	if h.attempts[userEmail] != 1 {
		t.Fatalf("expected one recorded attempt, got %d", h.attempts[userEmail])
	}
	u := h.users["u1"]
	if u.ResetToken == "" || !u.ResetTokenExpiry.Equal(h.now.Add(30*time.Minute)) {
		t.Fatalf("expected stored token with 30m expiry, got %+v", u)
	}
}

func TestRequestPINResetValidationShortCircuits(t *testing.T) {
	h := newResetHarness()
	err := RunRequestPINReset(context.Background(), "bad@example.com", h.deps())
	if !errors.Is(err, errBadDomain) {
		t.Fatalf("expected identity error, got %v", err)
	}
	if h.lookups != 0 || h.issued != 0 {
		t.Fatal("validation failure must not touch the store")
	}
}

func TestRequestPINResetUnknownIsNeutral(t *testing.T) {
	h := newResetHarness()
	delayed := false
	deps := h.deps()
	deps.SleepEnumerationDelay = func(context.Context) error {
		delayed = true
		return nil
	}

	if err := RunRequestPINReset(context.Background(), "2020ee999@curaj.ac.in", deps); err != nil {
		t.Fatalf("unknown account should be neutral, got %v", err)
	}
	if !delayed {
		t.Fatal("expected enumeration delay on unknown account")
	}
	if h.issued != 0 || h.mailed != 0 || len(h.attempts) != 0 {
		t.Fatal("unknown account must not issue, mail, or record")
	}
}

func TestRequestPINResetUnverified(t *testing.T) {
	h := newResetHarness()
	err := RunRequestPINReset(context.Background(), "2019cs002@curaj.ac.in", h.deps())
	if !errors.Is(err, errNotVerified) {
		t.Fatalf("expected not verified, got %v", err)
	}
	if h.issued != 0 {
		t.Fatal("unverified account must not receive a token")
	}
}

func TestRequestPINResetRateLimitBeforeLookup(t *testing.T) {
	h := newResetHarness()
	h.attempts[userEmail] = h.budget

	err := RunRequestPINReset(context.Background(), userEmail, h.deps())
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if h.lookups != 0 || h.issued != 0 {
		t.Fatal("rate limited request must not reach the store or issuer")
	}
}

func TestRequestPINResetMailFailureKeepsBudget(t *testing.T) {
	h := newResetHarness()
	h.mailErr = errors.New("smtp down")

	err := RunRequestPINReset(context.Background(), userEmail, h.deps())
	if !errors.Is(err, errMail) {
		t.Fatalf("expected mail failure, got %v", err)
	}
	if h.attempts[userEmail] != 0 {
		t.Fatal("mail failure must not record an attempt")
	}
	if h.users["u1"].ResetToken == "" {
		t.Fatal("persisted token stays in place after mail failure")
	}
}

func TestRequestPINResetLockContentionIsNeutral(t *testing.T) {
	h := newResetHarness()
	h.lockHeld = true

	if err := RunRequestPINReset(context.Background(), userEmail, h.deps()); err != nil {
		t.Fatalf("contended request should be neutral, got %v", err)
	}
	if h.issued != 0 || h.mailed != 0 {
		t.Fatal("losing the issue lock must not issue or mail")
	}
}

func TestRequestPINResetRecordFailureDoesNotFail(t *testing.T) {
	h := newResetHarness()
	h.recordErr = errors.New("redis down")

	if err := RunRequestPINReset(context.Background(), userEmail, h.deps()); err != nil {
		t.Fatalf("record failure after mail should not fail the request, got %v", err)
	}
}

func TestRequestPINResetNotReady(t *testing.T) {
	deps := newResetHarness().deps()
	deps.IssueToken = nil
	if err := RunRequestPINReset(context.Background(), userEmail, deps); !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func issueFor(t *testing.T, h *resetHarness) string {
	t.Helper()
	if err := RunRequestPINReset(context.Background(), userEmail, h.deps()); err != nil {
		t.Fatalf("request: %v", err)
	}
	return h.users["u1"].ResetToken
}

func TestConfirmPINResetSuccess(t *testing.T) {
	h := newResetHarness()
	token := issueFor(t, h)

	if err := RunConfirmPINReset(context.Background(), token, "4821", h.deps()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	u := h.users["u1"]
	if u.ResetToken != "" || !u.ResetTokenExpiry.IsZero() {
		t.Fatalf("token pair should be cleared, got %+v", u)
	}
	if len(h.committed) != 1 || h.committed[0] != "hash:4821" {
		t.Fatalf("unexpected committed hashes %v", h.committed)
	}
	if h.attempts[userEmail] != 2 {
		t.Fatalf("expected request and confirm recorded, got %d", h.attempts[userEmail])
	}

	if err := RunConfirmPINReset(context.Background(), token, "4821", h.deps()); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("replay should be invalid, got %v", err)
	}
}

func TestConfirmPINResetMissingFields(t *testing.T) {
	h := newResetHarness()
	if err := RunConfirmPINReset(context.Background(), "", "1234", h.deps()); !errors.Is(err, errTokenReq) {
		t.Fatalf("expected token required, got %v", err)
	}
	if err := RunConfirmPINReset(context.Background(), "tok-u1-1", "", h.deps()); !errors.Is(err, errTokenReq) {
		t.Fatalf("expected token required, got %v", err)
	}
}

func TestConfirmPINResetSupersededToken(t *testing.T) {
	h := newResetHarness()
	first := issueFor(t, h)
	second := issueFor(t, h)
	if first == second {
		t.Fatal("expected distinct tokens")
	}

	if err := RunConfirmPINReset(context.Background(), first, "4821", h.deps()); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("superseded token should be invalid, got %v", err)
	}
	if err := RunConfirmPINReset(context.Background(), second, "4821", h.deps()); err != nil {
		t.Fatalf("latest token should succeed, got %v", err)
	}
}

func TestConfirmPINResetExpiredAtBoundary(t *testing.T) {
	h := newResetHarness()
	token := issueFor(t, h)
	h.now = h.users["u1"].ResetTokenExpiry

	if err := RunConfirmPINReset(context.Background(), token, "4821", h.deps()); !errors.Is(err, errTokenExpired) {
		t.Fatalf("token at expiry instant should be expired, got %v", err)
	}
	if h.hashed != 0 {
		t.Fatal("expired token must not reach hashing")
	}
}

func TestConfirmPINResetJWTExpired(t *testing.T) {
	h := newResetHarness()
	if err := RunConfirmPINReset(context.Background(), "expired-jwt", "4821", h.deps()); !errors.Is(err, errTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestConfirmPINResetRateLimitedAfterVerify(t *testing.T) {
	h := newResetHarness()
	token := issueFor(t, h)
	h.attempts[userEmail] = h.budget

	if err := RunConfirmPINReset(context.Background(), token, "4821", h.deps()); !errors.Is(err, errRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if h.hashed != 0 || len(h.committed) != 0 {
		t.Fatal("rate limited confirm must not hash or commit")
	}
}

func TestConfirmPINResetPolicyRejection(t *testing.T) {
	h := newResetHarness()
	token := issueFor(t, h)

	if err := RunConfirmPINReset(context.Background(), token, "12", h.deps()); !errors.Is(err, errPolicy) {
		t.Fatalf("expected policy error, got %v", err)
	}
	if h.users["u1"].ResetToken != token {
		t.Fatal("policy rejection must keep the token usable")
	}
}

func TestConfirmPINResetLostRace(t *testing.T) {
	h := newResetHarness()
	token := issueFor(t, h)
	h.staleOnCAS = true

	if err := RunConfirmPINReset(context.Background(), token, "4821", h.deps()); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("stale commit should be invalid, got %v", err)
	}
	if h.attempts[userEmail] != 1 {
		t.Fatal("failed commit must not record an attempt")
	}
}

func TestConfirmPINResetIPThrottle(t *testing.T) {
	h := newResetHarness()
	ctx := context.WithValue(context.Background(), ipKey{}, "10.0.0.9")

	for i := 0; i < 2; i++ {
		if err := RunConfirmPINReset(ctx, "garbage", "4821", h.deps()); !errors.Is(err, errTokenInvalid) {
			t.Fatalf("expected invalid, got %v", err)
		}
	}
	if h.invalid["10.0.0.9"] != 2 {
		t.Fatalf("expected two invalid hits, got %d", h.invalid["10.0.0.9"])
	}

	token := issueFor(t, h)
	if err := RunConfirmPINReset(ctx, token, "4821", h.deps()); !errors.Is(err, errRateLimited) {
		t.Fatalf("throttled ip should be rate limited before verification, got %v", err)
	}
	if err := RunConfirmPINReset(context.Background(), token, "4821", h.deps()); err != nil {
		t.Fatalf("other client should proceed, got %v", err)
	}
}

func TestVerifyResetToken(t *testing.T) {
	h := newResetHarness()
	token := issueFor(t, h)

	userID, err := RunVerifyResetToken(context.Background(), token, h.deps())
	if err != nil || userID != "u1" {
		t.Fatalf("verify: %q %v", userID, err)
	}
	if len(h.committed) != 0 || h.users["u1"].ResetToken != token {
		t.Fatal("verify must not mutate state")
	}
	if _, err := RunVerifyResetToken(context.Background(), "", h.deps()); !errors.Is(err, errTokenReq) {
		t.Fatalf("expected token required, got %v", err)
	}
	if _, err := RunVerifyResetToken(context.Background(), "tok-zz-1", h.deps()); !errors.Is(err, errTokenInvalid) {
		t.Fatalf("unknown owner should be invalid, got %v", err)
	}
}
