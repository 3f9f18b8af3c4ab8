// Package postgres implements [pinreset.UserStore] on PostgreSQL through
// database/sql and the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/pinreset"
	"github.com/MrEthical07/pinreset/store/postgres/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DBTX is the subset of database/sql the store uses. *sql.DB and *sql.Tx
// both satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db DBTX
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

// Open connects with the pgx driver and pings the server.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// gooseUpContext is swapped in tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}
	return nil
}

const userColumns = `id, email, enrollment_id, verified, pin_hash, reset_token, reset_token_expiry`

func (s *Store) GetUserByEmail(ctx context.Context, email string) (pinreset.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (pinreset.UserRecord, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, userID))
}

func (s *Store) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	query :=
		`UPDATE users SET reset_token = $1, reset_token_expiry = $2, updated_at = now()
		 WHERE id = $3`

	res, err := s.db.ExecContext(ctx, query, token, expiresAt.UTC(), userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return pinreset.ErrUserNotFound
	}
	return nil
}

// CompleteReset is a single conditional UPDATE, so of two confirms racing on
// the same token only one can match the row.
func (s *Store) CompleteReset(ctx context.Context, userID, expectedToken, pinHash string, now time.Time) error {
	query :=
		`UPDATE users SET pin_hash = $1, reset_token = NULL, reset_token_expiry = NULL, updated_at = now()
		 WHERE id = $2 AND reset_token = $3 AND reset_token_expiry > $4`

	res, err := s.db.ExecContext(ctx, query, pinHash, userID, expectedToken, now.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return pinreset.ErrResetTokenStale
	}
	return nil
}

// CreateUser inserts u. It is used by provisioning and tests; the reset flows
// never create accounts.
func (s *Store) CreateUser(ctx context.Context, u pinreset.UserRecord) error {
	query :=
		`INSERT INTO users (id, email, enrollment_id, verified, pin_hash)
		 VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.ExecContext(ctx, query, u.UserID, u.Email, u.EnrollmentID, u.Verified, u.PINHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *Store) scanUser(row *sql.Row) (pinreset.UserRecord, error) {
	var (
		u      pinreset.UserRecord
		token  sql.NullString
		expiry sql.NullTime
	)
	err := row.Scan(&u.UserID, &u.Email, &u.EnrollmentID, &u.Verified, &u.PINHash, &token, &expiry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pinreset.UserRecord{}, pinreset.ErrUserNotFound
		}
		return pinreset.UserRecord{}, fmt.Errorf("db error: %w", err)
	}
	if token.Valid && expiry.Valid {
		u.ResetToken = token.String
		u.ResetTokenExpiry = expiry.Time
	}
	return u, nil
}

var _ pinreset.UserStore = (*Store)(nil)
