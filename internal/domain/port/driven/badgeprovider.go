package driven

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// BadgeProviderError is the single error kind returned by provider clients.
// Transport failures, non-2xx responses, undecodable bodies and missing API
// keys are all reported through it.
type BadgeProviderError struct {
	Provider   string // "credly" or "accredible".
	Operation  string // "issue", "revoke", "fetch".
	StatusCode int    // 0 when no response was received.
	Err        error
}

func (e *BadgeProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *BadgeProviderError) Unwrap() error { return e.Err }

// CredlyBadgeData is the issue request body for a Credly badge.
type CredlyBadgeData struct {
	RecipientEmail    string `json:"recipient_email"`
	IssuedToFirstName string `json:"issued_to_first_name"`
	IssuedToLastName  string `json:"issued_to_last_name"`
	BadgeTemplateID   string `json:"badge_template_id"`
	IssuedAt          string `json:"issued_at"`
}

// CredlyRevokeData is the revoke request body for a Credly badge.
type CredlyRevokeData struct {
	Reason string `json:"reason"`
}

// CredlyBadge is the badge object found under "data" in Credly responses.
type CredlyBadge struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// CredlyBadgeResponse is the envelope Credly returns for badge operations.
type CredlyBadgeResponse struct {
	Data CredlyBadge `json:"data"`
}

// CredlyAPI is an organization-scoped Credly client.
type CredlyAPI interface {
	IssueBadge(ctx context.Context, data CredlyBadgeData) (*CredlyBadgeResponse, error)
	RevokeBadge(ctx context.Context, badgeID string, data CredlyRevokeData) (*CredlyBadgeResponse, error)
	FetchBadge(ctx context.Context, badgeID string) (*CredlyBadgeResponse, error)
}

// CredlyClientFactory builds a CredlyAPI for an organization.
type CredlyClientFactory interface {
	ForOrganization(ctx context.Context, organization uuid.UUID) (CredlyAPI, error)
}

// AccredibleRecipient identifies who receives an Accredible credential.
type AccredibleRecipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AccredibleCredential is the credential object sent on issuance.
type AccredibleCredential struct {
	Recipient AccredibleRecipient `json:"recipient"`
	GroupID   int64               `json:"group_id"`
	Name      string              `json:"name"`
	IssuedOn  string              `json:"issued_on"`
	Complete  bool                `json:"complete"`
}

// AccredibleBadgeData is the issue request body for an Accredible credential.
type AccredibleBadgeData struct {
	Credential AccredibleCredential `json:"credential"`
}

// AccredibleExpiredCredential carries the expiry timestamp.
type AccredibleExpiredCredential struct {
	ExpiredOn string `json:"expired_on"`
}

// AccredibleExpireBadgeData is the update body that expires a credential.
type AccredibleExpireBadgeData struct {
	Credential AccredibleExpiredCredential `json:"credential"`
}

// AccredibleIssued is the credential object found in Accredible responses.
type AccredibleIssued struct {
	ID int64 `json:"id"`
}

// AccredibleBadgeResponse is the envelope Accredible returns for credentials.
type AccredibleBadgeResponse struct {
	Credential AccredibleIssued `json:"credential"`
}

// AccredibleAPI is an API-config-scoped Accredible client.
type AccredibleAPI interface {
	IssueBadge(ctx context.Context, data AccredibleBadgeData) (*AccredibleBadgeResponse, error)
	RevokeBadge(ctx context.Context, credentialID string, data AccredibleExpireBadgeData) (*AccredibleBadgeResponse, error)
}

// AccredibleClientFactory builds an AccredibleAPI for an API configuration.
type AccredibleClientFactory interface {
	ForAPIConfig(ctx context.Context, apiConfigID int64) (AccredibleAPI, error)
}
