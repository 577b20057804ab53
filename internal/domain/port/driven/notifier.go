package driven

import (
	"context"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
)

// BadgeNotifier publishes badge lifecycle events. Publishing is fire-and-forget:
// implementations log delivery failures instead of returning them.
type BadgeNotifier interface {
	NotifyBadgeAwarded(ctx context.Context, cred model.UserCredential)
	NotifyBadgeRevoked(ctx context.Context, cred model.UserCredential)
}
