package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// Propagator pushes local credential changes to a badge provider. On return
// cred carries whatever provider outcome was persisted.
type Propagator interface {
	Issue(ctx context.Context, cred *model.UserCredential, tmpl model.BadgeTemplate) error
	Revoke(ctx context.Context, cred *model.UserCredential, tmpl model.BadgeTemplate) error
}

// IssueOptions tunes IssueCredential. The zero value awards the credential,
// sets no attributes and clears any date override.
type IssueOptions struct {
	Status       model.CredentialStatus
	Attributes   []model.Attribute
	DateOverride *time.Time
}

// BadgeIssuer awards and revokes credentials of one kind. With a nil
// propagator it only maintains local records.
type BadgeIssuer struct {
	kind        model.CredentialKind
	templates   driven.TemplateStore
	credentials driven.UserCredentialStore
	notifier    driven.BadgeNotifier
	propagator  Propagator
	locks       *credentialLocks
}

// NewBadgeIssuer creates a BadgeIssuer for kind.
func NewBadgeIssuer(
	kind model.CredentialKind,
	templates driven.TemplateStore,
	credentials driven.UserCredentialStore,
	notifier driven.BadgeNotifier,
	propagator Propagator,
) *BadgeIssuer {
	return &BadgeIssuer{
		kind:        kind,
		templates:   templates,
		credentials: credentials,
		notifier:    notifier,
		propagator:  propagator,
		locks:       newCredentialLocks(),
	}
}

// Kind returns the credential kind this issuer handles.
func (s *BadgeIssuer) Kind() model.CredentialKind {
	return s.kind
}

// GetCredential fetches the definition with the given ID. A definition of a
// different kind is reported as driven.ErrTemplateNotFound.
func (s *BadgeIssuer) GetCredential(ctx context.Context, id int64) (*model.BadgeTemplate, error) {
	tmpl, err := s.templates.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tmpl.Kind != s.kind {
		return nil, fmt.Errorf("template %d is %s, not %s: %w", id, tmpl.Kind, s.kind, driven.ErrTemplateNotFound)
	}
	return tmpl, nil
}

// IssueCredential creates or updates the user's record for tmpl in a single
// transaction. The status is left untouched once the provider has reached
// the kind's revocation state.
func (s *BadgeIssuer) IssueCredential(ctx context.Context, tmpl model.BadgeTemplate, username string, opts IssueOptions) (*model.UserCredential, error) {
	if tmpl.Kind != s.kind {
		return nil, fmt.Errorf("issue %s with %s issuer: %w", tmpl.Kind, s.kind, driven.ErrTemplateNotFound)
	}

	status := opts.Status
	if status == "" {
		status = model.CredentialStatusAwarded
	}

	var issued *model.UserCredential
	err := s.credentials.WithTx(ctx, func(tx driven.UserCredentialTx) error {
		cred, created, err := tx.GetOrCreate(ctx, username, tmpl.Ref(), status)
		if err != nil {
			return err
		}

		if !created && !cred.Revoked() && cred.Status != status {
			if err := tx.UpdateStatus(ctx, cred.ID, status); err != nil {
				return err
			}
			cred.Status = status
		}

		if len(opts.Attributes) > 0 {
			if err := tx.SetAttributes(ctx, cred.ID, opts.Attributes); err != nil {
				return err
			}
			cred.Attributes = mergeAttributes(cred.Attributes, opts.Attributes)
		}

		if err := tx.SetDateOverride(ctx, cred.ID, opts.DateOverride); err != nil {
			return err
		}
		cred.DateOverride = opts.DateOverride

		issued = cred
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("issue %s %d to %s: %w", tmpl.Kind, tmpl.ID, username, err)
	}

	return issued, nil
}

// Award grants the credential to username and propagates it to the provider
// unless the provider already holds an issuance. A provider failure is
// returned together with the record, whose state then reads error.
func (s *BadgeIssuer) Award(ctx context.Context, username string, credentialID int64) (*model.UserCredential, error) {
	tmpl, err := s.GetCredential(ctx, credentialID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(username, tmpl.ID)
	defer unlock()

	cred, err := s.IssueCredential(ctx, *tmpl, username, IssueOptions{Status: model.CredentialStatusAwarded})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyBadgeAwarded(ctx, *cred)
	slog.Info("badge awarded", "kind", s.kind, "template_id", tmpl.ID, "username", username, "credential_id", cred.ID)

	if s.propagator != nil && !cred.Propagated() {
		if err := s.propagator.Issue(ctx, cred, *tmpl); err != nil {
			return cred, err
		}
	}

	return cred, nil
}

// Revoke marks the credential revoked and, when the provider holds an
// issuance, revokes it there too.
func (s *BadgeIssuer) Revoke(ctx context.Context, credentialID int64, username string) (*model.UserCredential, error) {
	tmpl, err := s.GetCredential(ctx, credentialID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(username, tmpl.ID)
	defer unlock()

	cred, err := s.IssueCredential(ctx, *tmpl, username, IssueOptions{Status: model.CredentialStatusRevoked})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyBadgeRevoked(ctx, *cred)
	slog.Info("badge revoked", "kind", s.kind, "template_id", tmpl.ID, "username", username, "credential_id", cred.ID)

	if s.propagator != nil && cred.Propagated() {
		if err := s.propagator.Revoke(ctx, cred, *tmpl); err != nil {
			return cred, err
		}
	}

	return cred, nil
}

// mergeAttributes upserts updates into current by name, keeping name order.
func mergeAttributes(current, updates []model.Attribute) []model.Attribute {
	byName := make(map[string]string, len(current)+len(updates))
	for _, a := range current {
		byName[a.Name] = a.Value
	}
	for _, a := range updates {
		byName[a.Name] = a.Value
	}

	merged := make([]model.Attribute, 0, len(byName))
	for name, value := range byName {
		merged = append(merged, model.Attribute{Name: name, Value: value})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Name < merged[j].Name })
	return merged
}
