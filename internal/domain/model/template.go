package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BadgeTemplate is an issuable badge definition. Exactly one of the variant
// payloads is set and it must match Kind; the provider-less base kind has none.
type BadgeTemplate struct {
	ID          int64
	Kind        CredentialKind
	Name        string
	Description string // Markdown.
	CreatedAt   time.Time

	Credly     *CredlyTemplate
	Accredible *AccredibleGroup
}

// CredlyTemplate identifies a Credly badge template and the organization
// that owns it.
type CredlyTemplate struct {
	UUID             uuid.UUID
	OrganizationUUID uuid.UUID
}

// AccredibleGroup identifies an Accredible group and the API configuration
// used to reach it.
type AccredibleGroup struct {
	GroupID     int64
	APIConfigID int64
}

// Ref returns the polymorphic reference user credentials store for t.
func (t BadgeTemplate) Ref() CredentialRef {
	return CredentialRef{Kind: t.Kind, ID: t.ID}
}

// Validate checks that the variant payload agrees with Kind.
func (t BadgeTemplate) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	switch t.Kind {
	case CredentialKindBadgeTemplate:
		if t.Credly != nil || t.Accredible != nil {
			return fmt.Errorf("template %q: base kind carries no provider payload", t.Name)
		}
	case CredentialKindCredly:
		if t.Credly == nil || t.Accredible != nil {
			return fmt.Errorf("template %q: credly kind requires exactly the credly payload", t.Name)
		}
		if t.Credly.UUID == uuid.Nil || t.Credly.OrganizationUUID == uuid.Nil {
			return fmt.Errorf("template %q: credly template and organization uuids are required", t.Name)
		}
	case CredentialKindAccredible:
		if t.Accredible == nil || t.Credly != nil {
			return fmt.Errorf("template %q: accredible kind requires exactly the accredible payload", t.Name)
		}
		if t.Accredible.GroupID == 0 || t.Accredible.APIConfigID == 0 {
			return fmt.Errorf("template %q: accredible group and api config ids are required", t.Name)
		}
	default:
		return fmt.Errorf("template %q: unknown kind %q", t.Name, t.Kind)
	}
	return nil
}
