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

// Compile-time interface satisfaction checks.
var (
	_ driven.UserCredentialStore = (*UserCredentialRepo)(nil)
	_ driven.UserCredentialTx    = (*userCredentialTx)(nil)
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserCredentialRepo is the SQLite implementation of the UserCredentialStore
// port interface.
type UserCredentialRepo struct {
	db  *DB
	now func() time.Time
}

// NewUserCredentialRepo creates a new UserCredentialRepo backed by the given DB.
func NewUserCredentialRepo(db *DB) *UserCredentialRepo {
	return &UserCredentialRepo{db: db, now: time.Now}
}

const userCredentialColumns = `id, username, credential_kind, credential_id, status, state, external_id, created_at, updated_at`

// WithTx runs fn inside a writer transaction.
func (r *UserCredentialRepo) WithTx(ctx context.Context, fn func(tx driven.UserCredentialTx) error) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&userCredentialTx{tx: tx, now: r.now})
	})
}

// Get returns the credential with its attributes and date override.
func (r *UserCredentialRepo) Get(ctx context.Context, id int64) (*model.UserCredential, error) {
	query := `SELECT ` + userCredentialColumns + ` FROM user_credentials WHERE id = ?`

	cred, err := scanUserCredential(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user credential %d: %w", id, driven.ErrCredentialNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user credential %d: %w", id, err)
	}

	if err := loadCredentialExtras(ctx, r.db.Reader, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Find returns the credential for (username, ref), or nil, nil when absent.
func (r *UserCredentialRepo) Find(ctx context.Context, username string, ref model.CredentialRef) (*model.UserCredential, error) {
	cred, err := findUserCredential(ctx, r.db.Reader, username, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user credential for %s: %w", username, err)
	}

	if err := loadCredentialExtras(ctx, r.db.Reader, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// ListByUsername returns all credentials held by username, oldest first.
func (r *UserCredentialRepo) ListByUsername(ctx context.Context, username string) ([]model.UserCredential, error) {
	query := `SELECT ` + userCredentialColumns + ` FROM user_credentials WHERE username = ? ORDER BY id`

	creds, err := r.queryUserCredentials(ctx, query, username)
	if err != nil {
		return nil, err
	}
	for i := range creds {
		if err := loadCredentialExtras(ctx, r.db.Reader, &creds[i]); err != nil {
			return nil, err
		}
	}
	return creds, nil
}

// SaveExternal records the provider-assigned ID and state.
func (r *UserCredentialRepo) SaveExternal(ctx context.Context, id int64, externalID string, state model.BadgeState) error {
	const query = `UPDATE user_credentials SET external_id = ?, state = ?, updated_at = ? WHERE id = ?`
	return r.exec(ctx, id, query, externalID, string(state), formatTime(r.now()), id)
}

// SaveState records a provider state.
func (r *UserCredentialRepo) SaveState(ctx context.Context, id int64, state model.BadgeState) error {
	const query = `UPDATE user_credentials SET state = ?, updated_at = ? WHERE id = ?`
	return r.exec(ctx, id, query, string(state), formatTime(r.now()), id)
}

// ListUnpropagated returns awarded credentials of kind with no external ID.
// Attributes and date overrides are not loaded.
func (r *UserCredentialRepo) ListUnpropagated(ctx context.Context, kind model.CredentialKind, limit int) ([]model.UserCredential, error) {
	query := `SELECT ` + userCredentialColumns + ` FROM user_credentials
		WHERE credential_kind = ? AND status = ? AND external_id = ''
		ORDER BY id LIMIT ?`
	return r.queryUserCredentials(ctx, query, string(kind), string(model.CredentialStatusAwarded), limit)
}

// ListPendingRevocation returns revoked, propagated credentials of kind whose
// provider badge has not reached the revocation state.
func (r *UserCredentialRepo) ListPendingRevocation(ctx context.Context, kind model.CredentialKind, limit int) ([]model.UserCredential, error) {
	revoked, ok := model.RevocationState(kind)
	if !ok {
		return []model.UserCredential{}, nil
	}

	query := `SELECT ` + userCredentialColumns + ` FROM user_credentials
		WHERE credential_kind = ? AND status = ? AND external_id != '' AND state != ?
		ORDER BY id LIMIT ?`
	return r.queryUserCredentials(ctx, query, string(kind), string(model.CredentialStatusRevoked), string(revoked), limit)
}

// ListByState returns propagated credentials of kind in the given state.
func (r *UserCredentialRepo) ListByState(ctx context.Context, kind model.CredentialKind, state model.BadgeState, limit int) ([]model.UserCredential, error) {
	query := `SELECT ` + userCredentialColumns + ` FROM user_credentials
		WHERE credential_kind = ? AND state = ? AND external_id != ''
		ORDER BY id LIMIT ?`
	return r.queryUserCredentials(ctx, query, string(kind), string(state), limit)
}

func (r *UserCredentialRepo) exec(ctx context.Context, id int64, query string, args ...any) error {
	result, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user credential %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user credential %d: %w", id, driven.ErrCredentialNotFound)
	}
	return nil
}

func (r *UserCredentialRepo) queryUserCredentials(ctx context.Context, query string, args ...any) ([]model.UserCredential, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user credentials: %w", err)
	}
	defer rows.Close()

	creds := []model.UserCredential{}
	for rows.Next() {
		cred, err := scanUserCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user credential: %w", err)
		}
		creds = append(creds, *cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user credentials: %w", err)
	}

	return creds, nil
}

// userCredentialTx implements driven.UserCredentialTx over one *sql.Tx.
type userCredentialTx struct {
	tx  *sql.Tx
	now func() time.Time
}

// GetOrCreate inserts the credential when its key is free, then reads it back.
func (t *userCredentialTx) GetOrCreate(ctx context.Context, username string, ref model.CredentialRef, status model.CredentialStatus) (*model.UserCredential, bool, error) {
	const insert = `
		INSERT INTO user_credentials (username, credential_kind, credential_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (username, credential_kind, credential_id) DO NOTHING
	`
	now := formatTime(t.now())
	result, err := t.tx.ExecContext(ctx, insert, username, string(ref.Kind), ref.ID, string(status), now, now)
	if err != nil {
		return nil, false, fmt.Errorf("insert user credential for %s: %w", username, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("check rows affected: %w", err)
	}

	cred, err := findUserCredential(ctx, t.tx, username, ref)
	if err != nil {
		return nil, false, fmt.Errorf("read user credential for %s: %w", username, err)
	}
	if err := loadCredentialExtras(ctx, t.tx, cred); err != nil {
		return nil, false, err
	}

	return cred, rows == 1, nil
}

// UpdateStatus overwrites the local status.
func (t *userCredentialTx) UpdateStatus(ctx context.Context, id int64, status model.CredentialStatus) error {
	const query = `UPDATE user_credentials SET status = ?, updated_at = ? WHERE id = ?`
	if _, err := t.tx.ExecContext(ctx, query, string(status), formatTime(t.now()), id); err != nil {
		return fmt.Errorf("update status of user credential %d: %w", id, err)
	}
	return nil
}

// SetAttributes upserts each attribute by name. Attributes not listed are kept.
func (t *userCredentialTx) SetAttributes(ctx context.Context, id int64, attrs []model.Attribute) error {
	const query = `
		INSERT INTO user_credential_attributes (user_credential_id, name, value) VALUES (?, ?, ?)
		ON CONFLICT (user_credential_id, name) DO UPDATE SET value = excluded.value
	`
	for _, attr := range attrs {
		if _, err := t.tx.ExecContext(ctx, query, id, attr.Name, attr.Value); err != nil {
			return fmt.Errorf("set attribute %q on user credential %d: %w", attr.Name, id, err)
		}
	}
	return nil
}

// SetDateOverride stores date or removes the existing override when nil.
func (t *userCredentialTx) SetDateOverride(ctx context.Context, id int64, date *time.Time) error {
	if date == nil {
		const query = `DELETE FROM user_credential_date_overrides WHERE user_credential_id = ?`
		if _, err := t.tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("clear date override of user credential %d: %w", id, err)
		}
		return nil
	}

	const query = `
		INSERT INTO user_credential_date_overrides (user_credential_id, date) VALUES (?, ?)
		ON CONFLICT (user_credential_id) DO UPDATE SET date = excluded.date
	`
	if _, err := t.tx.ExecContext(ctx, query, id, formatTime(*date)); err != nil {
		return fmt.Errorf("set date override of user credential %d: %w", id, err)
	}
	return nil
}

func findUserCredential(ctx context.Context, q querier, username string, ref model.CredentialRef) (*model.UserCredential, error) {
	query := `SELECT ` + userCredentialColumns + ` FROM user_credentials
		WHERE username = ? AND credential_kind = ? AND credential_id = ?`
	return scanUserCredential(q.QueryRowContext(ctx, query, username, string(ref.Kind), ref.ID))
}

// loadCredentialExtras fills the attributes and date override of cred.
func loadCredentialExtras(ctx context.Context, q querier, cred *model.UserCredential) error {
	const attrQuery = `SELECT name, value FROM user_credential_attributes WHERE user_credential_id = ? ORDER BY name`
	rows, err := q.QueryContext(ctx, attrQuery, cred.ID)
	if err != nil {
		return fmt.Errorf("query attributes of user credential %d: %w", cred.ID, err)
	}
	defer rows.Close()

	cred.Attributes = []model.Attribute{}
	for rows.Next() {
		var attr model.Attribute
		if err := rows.Scan(&attr.Name, &attr.Value); err != nil {
			return fmt.Errorf("scan attribute: %w", err)
		}
		cred.Attributes = append(cred.Attributes, attr)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate attributes: %w", err)
	}

	const dateQuery = `SELECT date FROM user_credential_date_overrides WHERE user_credential_id = ?`
	var raw string
	err = q.QueryRowContext(ctx, dateQuery, cred.ID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		cred.DateOverride = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("query date override of user credential %d: %w", cred.ID, err)
	}

	date, err := parseTime(raw)
	if err != nil {
		return fmt.Errorf("parse date override: %w", err)
	}
	cred.DateOverride = &date
	return nil
}

func scanUserCredential(s scanner) (*model.UserCredential, error) {
	var cred model.UserCredential
	var kind, status, state, createdAt, updatedAt string

	err := s.Scan(
		&cred.ID, &cred.Username, &kind, &cred.Credential.ID, &status, &state,
		&cred.ExternalID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	cred.Credential.Kind = model.CredentialKind(kind)
	cred.Status = model.CredentialStatus(status)
	cred.State = model.BadgeState(state)

	cred.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &cred, nil
}
