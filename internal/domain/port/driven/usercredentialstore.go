package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
)

// ErrCredentialNotFound is returned when a user credential does not exist.
var ErrCredentialNotFound = errors.New("user credential not found")

// UserCredentialTx is the set of writes available inside a single
// all-or-nothing store transaction.
type UserCredentialTx interface {
	// GetOrCreate returns the credential keyed by (username, ref), inserting it
	// with status when absent. created reports whether a row was inserted.
	GetOrCreate(ctx context.Context, username string, ref model.CredentialRef, status model.CredentialStatus) (cred *model.UserCredential, created bool, err error)
	UpdateStatus(ctx context.Context, id int64, status model.CredentialStatus) error
	// SetAttributes upserts each attribute by name.
	SetAttributes(ctx context.Context, id int64, attrs []model.Attribute) error
	// SetDateOverride stores date, or clears the override when date is nil.
	SetDateOverride(ctx context.Context, id int64, date *time.Time) error
}

// UserCredentialStore defines the driven port for per-user credential records.
type UserCredentialStore interface {
	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx UserCredentialTx) error) error

	// Get returns the credential with its attributes and date override, or
	// ErrCredentialNotFound.
	Get(ctx context.Context, id int64) (*model.UserCredential, error)
	// Find returns the credential for (username, ref), or nil, nil when absent.
	Find(ctx context.Context, username string, ref model.CredentialRef) (*model.UserCredential, error)
	ListByUsername(ctx context.Context, username string) ([]model.UserCredential, error)

	// SaveExternal records a successful provider round-trip.
	SaveExternal(ctx context.Context, id int64, externalID string, state model.BadgeState) error
	// SaveState records a provider state without touching the external ID.
	SaveState(ctx context.Context, id int64, state model.BadgeState) error

	// ListUnpropagated returns awarded credentials of kind with no external ID.
	ListUnpropagated(ctx context.Context, kind model.CredentialKind, limit int) ([]model.UserCredential, error)
	// ListPendingRevocation returns revoked, propagated credentials of kind
	// whose state is not the kind's revocation state.
	ListPendingRevocation(ctx context.Context, kind model.CredentialKind, limit int) ([]model.UserCredential, error)
	// ListByState returns propagated credentials of kind in the given state.
	ListByState(ctx context.Context, kind model.CredentialKind, state model.BadgeState, limit int) ([]model.UserCredential, error)
}
