package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
)

// ErrTemplateNotFound is returned when a badge definition does not exist.
var ErrTemplateNotFound = errors.New("badge template not found")

// TemplateStore defines the driven port for badge definition persistence.
type TemplateStore interface {
	// Get returns the template with the given ID or ErrTemplateNotFound.
	Get(ctx context.Context, id int64) (*model.BadgeTemplate, error)
	// Upsert inserts t when t.ID is zero and updates display fields otherwise.
	// It returns the stored ID.
	Upsert(ctx context.Context, t model.BadgeTemplate) (int64, error)
	ListAll(ctx context.Context) ([]model.BadgeTemplate, error)
}
