package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
)

// ErrUserNotFound is returned when a username has no profile.
var ErrUserNotFound = errors.New("user not found")

// UserDirectory resolves recipient profiles.
type UserDirectory interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Upsert(ctx context.Context, user model.User) error
}
