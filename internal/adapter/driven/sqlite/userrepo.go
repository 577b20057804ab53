package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserDirectory = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserDirectory port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetByUsername returns the profile for username or driven.ErrUserNotFound.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const query = `SELECT username, email, first_name, last_name FROM users WHERE username = ?`

	var u model.User
	err := r.db.Reader.QueryRowContext(ctx, query, username).Scan(&u.Username, &u.Email, &u.FirstName, &u.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, driven.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return &u, nil
}

// Upsert inserts or replaces the profile keyed by username.
func (r *UserRepo) Upsert(ctx context.Context, user model.User) error {
	if user.Username == "" {
		return errors.New("username is required")
	}

	const query = `
		INSERT INTO users (username, email, first_name, last_name, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at
	`
	_, err := r.db.Writer.ExecContext(ctx, query, user.Username, user.Email, user.FirstName, user.LastName, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert user %q: %w", user.Username, err)
	}
	return nil
}
