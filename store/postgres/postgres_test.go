package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MrEthical07/pinreset"
	"github.com/pressly/goose/v3"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return New(db), mock
}

var userCols = []string{"id", "email", "enrollment_id", "verified", "pin_hash", "reset_token", "reset_token_expiry"}

func TestGetUserByEmailFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^SELECT .+ FROM users WHERE lower\(email\) = lower\(\$1\)$`).
		WithArgs("2021bcs001@curaj.ac.in").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "2021bcs001@curaj.ac.in", "2021bcs001", true, "hash", "tok", expiry))

	u, err := s.GetUserByEmail(context.Background(), "2021bcs001@curaj.ac.in")
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if u.UserID != "u1" || !u.Verified || u.ResetToken != "tok" || !u.ResetTokenExpiry.Equal(expiry) {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetUserByIDNullTokenPair(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT .+ FROM users WHERE id = \$1$`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "a@curaj.ac.in", "a", false, "", nil, nil))

	u, err := s.GetUserByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserByID error: %v", err)
	}
	if u.ResetToken != "" || !u.ResetTokenExpiry.IsZero() {
		t.Fatalf("expected empty token pair, got %+v", u)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM users WHERE id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := s.GetUserByID(context.Background(), "missing"); !errors.Is(err, pinreset.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetUserDBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`FROM users WHERE id`).
		WithArgs("u1").
		WillReturnError(errors.New("db down"))

	_, err := s.GetUserByID(context.Background(), "u1")
	if err == nil || errors.Is(err, pinreset.ErrUserNotFound) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSetResetToken(t *testing.T) {
	s, mock := newStoreWithMock(t)
	expiry := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)^UPDATE users SET reset_token = \$1, reset_token_expiry = \$2`).
		WithArgs("tok", expiry, "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.SetResetToken(context.Background(), "u1", "tok", expiry); err != nil {
		t.Fatalf("SetResetToken error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetResetTokenUnknownUser(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`UPDATE users SET reset_token`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetResetToken(context.Background(), "nobody", "tok", time.Now())
	if !errors.Is(err, pinreset.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCompleteResetCommits(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Date(2026, 1, 1, 12, 10, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)^UPDATE users SET pin_hash = \$1, reset_token = NULL, reset_token_expiry = NULL.+WHERE id = \$2 AND reset_token = \$3 AND reset_token_expiry > \$4$`).
		WithArgs("newhash", "u1", "tok", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.CompleteReset(context.Background(), "u1", "tok", "newhash", now); err != nil {
		t.Fatalf("CompleteReset error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompleteResetStale(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`UPDATE users SET pin_hash`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.CompleteReset(context.Background(), "u1", "old", "newhash", time.Now())
	if !errors.Is(err, pinreset.ErrResetTokenStale) {
		t.Fatalf("expected ErrResetTokenStale, got %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`(?s)^INSERT INTO users`).
		WithArgs("u1", "a@curaj.ac.in", "a", true, "h").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.CreateUser(context.Background(), pinreset.UserRecord{
		UserID: "u1", Email: "a@curaj.ac.in", EnrollmentID: "a", Verified: true, PINHash: "h",
	})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
}

func TestMigrateUsesEmbeddedDir(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	if gotDir != "." {
		t.Fatalf("expected dir \".\", got %q", gotDir)
	}

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	if err := Migrate(context.Background(), db); err == nil {
		t.Fatal("expected migrate error")
	}
}
