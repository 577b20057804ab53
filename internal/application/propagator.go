package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/badgehub/internal/domain/model"
	"github.com/ericfisherdev/badgehub/internal/domain/port/driven"
)

// providerTimeLayout is the timestamp format both badge networks accept.
const providerTimeLayout = "2006-01-02 15:04:05 -0700"

// credlyRevokeReason is sent with every Credly revocation.
const credlyRevokeReason = "internal user credential was revoked"

// recordFailure applies the provider error policy: a *driven.BadgeProviderError
// moves cred to the error state, which is persisted. The original error is
// always returned.
func recordFailure(ctx context.Context, credentials driven.UserCredentialStore, cred *model.UserCredential, err error) error {
	var provErr *driven.BadgeProviderError
	if !errors.As(err, &provErr) {
		return err
	}

	slog.Warn("badge provider call failed",
		"provider", provErr.Provider,
		"operation", provErr.Operation,
		"status_code", provErr.StatusCode,
		"credential_id", cred.ID,
		"error", provErr.Err,
	)

	cred.State = model.BadgeStateError
	if saveErr := credentials.SaveState(ctx, cred.ID, cred.State); saveErr != nil {
		slog.Error("failed to persist error state", "credential_id", cred.ID, "error", saveErr)
	}
	return err
}

// CredlyPropagator issues and revokes Credly badges for credly_badge_template
// credentials.
type CredlyPropagator struct {
	clients     driven.CredlyClientFactory
	users       driven.UserDirectory
	credentials driven.UserCredentialStore
}

var (
	_ Propagator = (*CredlyPropagator)(nil)
	_ Refresher  = (*CredlyPropagator)(nil)
)

// NewCredlyPropagator creates a CredlyPropagator.
func NewCredlyPropagator(clients driven.CredlyClientFactory, users driven.UserDirectory, credentials driven.UserCredentialStore) *CredlyPropagator {
	return &CredlyPropagator{clients: clients, users: users, credentials: credentials}
}

// Issue sends the badge to Credly and records the returned id and state.
func (p *CredlyPropagator) Issue(ctx context.Context, cred *model.UserCredential, tmpl model.BadgeTemplate) error {
	if tmpl.Credly == nil {
		return fmt.Errorf("template %d has no credly payload", tmpl.ID)
	}

	user, err := p.users.GetByUsername(ctx, cred.Username)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", cred.Username, err)
	}

	client, err := p.clients.ForOrganization(ctx, tmpl.Credly.OrganizationUUID)
	if err != nil {
		return recordFailure(ctx, p.credentials, cred, err)
	}

	resp, err := client.IssueBadge(ctx, driven.CredlyBadgeData{
		RecipientEmail:    user.Email,
		IssuedToFirstName: orUsername(user.FirstName, cred.Username),
		IssuedToLastName:  orUsername(user.LastName, cred.Username),
		BadgeTemplateID:   tmpl.Credly.UUID.String(),
		IssuedAt:          tmpl.CreatedAt.Format(providerTimeLayout),
	})
	if err != nil {
		return recordFailure(ctx, p.credentials, cred, err)
	}

	cred.ExternalID = resp.Data.ID
	cred.State = model.BadgeState(resp.Data.State)
	if err := p.credentials.SaveExternal(ctx, cred.ID, cred.ExternalID, cred.State); err != nil {
		return fmt.Errorf("record credly issuance: %w", err)
	}
	return nil
}

// Revoke revokes the badge on Credly and records the returned state.
func (p *CredlyPropagator) Revoke(ctx context.Context, cred *model.UserCredential, tmpl model.BadgeTemplate) error {
	if tmpl.Credly == nil {
		return fmt.Errorf("template %d has no credly payload", tmpl.ID)
	}

	client, err := p.clients.ForOrganization(ctx, tmpl.Credly.OrganizationUUID)
	if err != nil {
		return recordFailure(ctx, p.credentials, cred, err)
	}

	resp, err := client.RevokeBadge(ctx, cred.ExternalID, driven.CredlyRevokeData{Reason: credlyRevokeReason})
	if err != nil {
		return recordFailure(ctx, p.credentials, cred, err)
	}

	cred.State = model.BadgeState(resp.Data.State)
	if err := p.credentials.SaveState(ctx, cred.ID, cred.State); err != nil {
		return fmt.Errorf("record credly revocation: %w", err)
	}
	return nil
}

// RefreshStates lists the Credly states that may still change on their own.
func (p *CredlyPropagator) RefreshStates() []model.BadgeState {
	return []model.BadgeState{model.CredlyStatePending}
}

// Refresh reads the badge back from Credly and stores its current state.
// Failures leave the record untouched.
func (p *CredlyPropagator) Refresh(ctx context.Context, cred *model.UserCredential, tmpl model.BadgeTemplate) error {
	if tmpl.Credly == nil {
		return fmt.Errorf("template %d has no credly payload", tmpl.ID)
	}

	client, err := p.clients.ForOrganization(ctx, tmpl.Credly.OrganizationUUID)
	if err != nil {
		return err
	}

	resp, err := client.FetchBadge(ctx, cred.ExternalID)
	if err != nil {
		return err
	}

	state := model.BadgeState(resp.Data.State)
	if state == cred.State {
		return nil
	}
	cred.State = state
	if err := p.credentials.SaveState(ctx, cred.ID, cred.State); err != nil {
		return fmt.Errorf("record credly state: %w", err)
	}
	return nil
}

// AccrediblePropagator issues and expires Accredible credentials for
// accredible_group credentials.
type AccrediblePropagator struct {
	clients     driven.AccredibleClientFactory
	users       driven.UserDirectory
	credentials driven.UserCredentialStore
	now         func() time.Time
}

var _ Propagator = (*AccrediblePropagator)(nil)

// NewAccrediblePropagator creates an AccrediblePropagator.
func NewAccrediblePropagator(clients driven.AccredibleClientFactory, users driven.UserDirectory, credentials driven.UserCredentialStore) *AccrediblePropagator {
	return &AccrediblePropagator{clients: clients, users: users, credentials: credentials, now: time.Now}
}

// Issue creates the credential in the Accredible group.
func (p *AccrediblePropagator) Issue(ctx context.Context, cred *model.UserCredential, tmpl model.BadgeTemplate) error {
	if tmpl.Accredible == nil {
		return fmt.Errorf("template %d has no accredible payload", tmpl.ID)
	}

	user, err := p.users.GetByUsername(ctx, cred.Username)
	if err != nil {
		return fmt.Errorf("resolve recipient %s: %w", cred.Username, err)
	}

	client, err := p.clients.ForAPIConfig(ctx, tmpl.Accredible.APIConfigID)
	if err != nil {
		return recordFailure(ctx, p.credentials, cred, err)
	}

	resp, err := client.IssueBadge(ctx, driven.AccredibleBadgeData{
		Credential: driven.AccredibleCredential{
			Recipient: driven.AccredibleRecipient{
				Name:  orUsername(user.FullName(), cred.Username),
				Email: user.Email,
			},
			GroupID:  tmpl.Accredible.GroupID,
			Name:     tmpl.Name,
			IssuedOn: cred.CreatedAt.Format(providerTimeLayout),
			Complete: true,
		},
	})
	if err != nil {
		return recordFailure(ctx, p.credentials, cred, err)
	}

	cred.ExternalID = fmt.Sprint(resp.Credential.ID)
	cred.State = model.AccredibleStateAccepted
	if err := p.credentials.SaveExternal(ctx, cred.ID, cred.ExternalID, cred.State); err != nil {
		return fmt.Errorf("record accredible issuance: %w", err)
	}
	return nil
}

// Revoke expires the credential on Accredible as of now.
func (p *AccrediblePropagator) Revoke(ctx context.Context, cred *model.UserCredential, tmpl model.BadgeTemplate) error {
	if tmpl.Accredible == nil {
		return fmt.Errorf("template %d has no accredible payload", tmpl.ID)
	}

	client, err := p.clients.ForAPIConfig(ctx, tmpl.Accredible.APIConfigID)
	if err != nil {
		return recordFailure(ctx, p.credentials, cred, err)
	}

	_, err = client.RevokeBadge(ctx, cred.ExternalID, driven.AccredibleExpireBadgeData{
		Credential: driven.AccredibleExpiredCredential{ExpiredOn: p.now().Format(providerTimeLayout)},
	})
	if err != nil {
		return recordFailure(ctx, p.credentials, cred, err)
	}

	cred.State = model.AccredibleStateExpired
	if err := p.credentials.SaveState(ctx, cred.ID, cred.State); err != nil {
		return fmt.Errorf("record accredible revocation: %w", err)
	}
	return nil
}

// orUsername returns the trimmed name, or username when the name is blank.
func orUsername(name, username string) string {
	if name = strings.TrimSpace(name); name == "" {
		return username
	}
	return name
}
