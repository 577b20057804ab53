// Package lognotify reports badge lifecycle events to a structured logger.
// It is used when no message broker is configured.
package lognotify

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

var _ driven.BadgeNotifier = (*Notifier)(nil)

// Notifier logs each event at info level.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a Notifier writing to logger, or to slog.Default when
// logger is nil.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// NotifyBadgeAwarded logs a badge.awarded event.
func (n *Notifier) NotifyBadgeAwarded(ctx context.Context, cred model.UserCredential) {
	n.log(ctx, model.EventBadgeAwarded, cred)
}

// NotifyBadgeRevoked logs a badge.revoked event.
func (n *Notifier) NotifyBadgeRevoked(ctx context.Context, cred model.UserCredential) {
	n.log(ctx, model.EventBadgeRevoked, cred)
}

func (n *Notifier) log(ctx context.Context, eventType model.EventType, cred model.UserCredential) {
	n.logger.InfoContext(ctx, "badge event",
		"type", eventType,
		"credential_id", cred.ID,
		"username", cred.Username,
		"kind", cred.Credential.Kind,
		"template_id", cred.Credential.ID,
		"status", cred.Status,
	)
}
