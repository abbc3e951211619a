// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/frogworks/storefront/internal/app/domain/user"
	"github.com/frogworks/storefront/internal/app/storage"
)

// querier is satisfied by *sql.DB and *sql.Tx so the same methods serve both
// plain calls and transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
	q  querier
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// WithTx runs fn inside one serializable transaction. fn receives a Store
// view whose queries ride on the transaction. Serializable isolation is what
// makes the read-then-write invariant checks (ownership, funds, sale
// overlap) hold under concurrency; row locks alone do not cover the
// predicate reads.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fmt.Errorf("nested transactions are not supported")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w: rollback after %v: %v", storage.ErrPartialState, err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// mapErr converts driver errors to the storage sentinels.
func mapErr(kind string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", kind, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", kind, storage.ErrAlreadyExists)
	}
	return err
}

// --- UserStore --------------------------------------------------------------

const userColumns = `id, identifier, username, name, email, password_hash,
	joined, balance, profile_photo_id, developer, administrator, verified`

func scanUser(row interface{ Scan(...any) error }) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Identifier, &u.Username, &u.Name, &u.Email,
		&u.PasswordHash, &u.Joined, &u.Balance, &u.ProfilePhotoID,
		&u.Developer, &u.Administrator, &u.Verified)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, u.ID, u.Identifier, u.Username, u.Name, u.Email, u.PasswordHash,
		u.Joined, u.Balance, u.ProfilePhotoID, u.Developer, u.Administrator, u.Verified)
	if err != nil {
		return user.User{}, mapErr("user", err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	result, err := s.q.ExecContext(ctx, `
		UPDATE users
		SET username = $2, name = $3, email = $4, password_hash = $5,
		    balance = $6, profile_photo_id = $7, developer = $8,
		    administrator = $9, verified = $10
		WHERE id = $1
	`, u.ID, u.Username, u.Name, u.Email, u.PasswordHash, u.Balance,
		u.ProfilePhotoID, u.Developer, u.Administrator, u.Verified)
	if err != nil {
		return user.User{}, mapErr("user", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, mapErr("user", sql.ErrNoRows)
	}
	return u, nil
}

func (s *Store) getUserWhere(ctx context.Context, clause string, arg any) (user.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+clause, arg))
	if err != nil {
		return user.User{}, mapErr("user", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.getUserWhere(ctx, `id = $1`, id)
}

func (s *Store) GetUserByIdentifier(ctx context.Context, identifier string) (user.User, error) {
	return s.getUserWhere(ctx, `identifier = $1`, identifier)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.getUserWhere(ctx, `lower(username) = lower($1)`, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getUserWhere(ctx, `lower(email) = lower($1)`, email)
}

func (s *Store) GetUserForUpdate(ctx context.Context, id string) (user.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return user.User{}, mapErr("user", err)
	}
	return u, nil
}

// --- VerificationStore ------------------------------------------------------

func (s *Store) ReplaceEmailVerification(ctx context.Context, v user.EmailVerification) (user.EmailVerification, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO email_verifications (id, email, code)
		VALUES ($1, lower($2), $3)
		ON CONFLICT (email) DO UPDATE SET code = EXCLUDED.code
	`, v.ID, v.Email, v.Code)
	if err != nil {
		return user.EmailVerification{}, mapErr("verification", err)
	}
	return v, nil
}

func (s *Store) GetEmailVerification(ctx context.Context, email string) (user.EmailVerification, error) {
	var v user.EmailVerification
	err := s.q.QueryRowContext(ctx, `
		SELECT id, email, code FROM email_verifications WHERE lower(email) = lower($1)
	`, email).Scan(&v.ID, &v.Email, &v.Code)
	if err != nil {
		return user.EmailVerification{}, mapErr("verification", err)
	}
	return v, nil
}

func (s *Store) DeleteEmailVerifications(ctx context.Context, email string) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM email_verifications WHERE lower(email) = lower($1)`, email)
	return mapErr("verification", err)
}
