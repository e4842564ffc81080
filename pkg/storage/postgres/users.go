package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/apnisec/issuetracker/pkg/storage"
)

const uniqueViolation = "23505"

// UserStore implements storage.CredentialStore on the users table.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store over an open connection pool.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*storage.User, error) {
	query := `
		SELECT id, name, email, password, reset_token, reset_expires, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	var (
		u            storage.User
		resetToken   sql.NullString
		resetExpires sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&resetToken,
		&resetExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if resetToken.Valid {
		u.ResetToken = &resetToken.String
	}
	if resetExpires.Valid {
		u.ResetExpires = &resetExpires.Time
	}
	return &u, nil
}

func (s *UserStore) Insert(ctx context.Context, name, email, passwordHash string) error {
	query := `
		INSERT INTO users (name, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
	`

	if _, err := s.db.ExecContext(ctx, query, name, email, passwordHash); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return storage.ErrConflict
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	query := `UPDATE users SET password = $1, updated_at = NOW() WHERE email = $2`
	return s.exec(ctx, query, passwordHash, email)
}

func (s *UserStore) UpdateName(ctx context.Context, email, name string) error {
	query := `UPDATE users SET name = $1, updated_at = NOW() WHERE email = $2`
	return s.exec(ctx, query, name, email)
}

func (s *UserStore) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *UserStore) HealthCheck(ctx context.Context) error {
	return HealthCheck(ctx, s.db)
}
