package model

import "time"

// CredentialRef points at a badge definition of any kind.
type CredentialRef struct {
	Kind CredentialKind
	ID   int64
}

// Attribute is a named value attached to a user credential.
type Attribute struct {
	Name  string
	Value string
}

// UserCredential records one user's relationship to a badge definition.
// There is at most one per (Username, Credential).
type UserCredential struct {
	ID           int64
	Username     string
	Credential   CredentialRef
	Status       CredentialStatus
	State        BadgeState
	ExternalID   string // Assigned by the provider on successful issuance.
	Attributes   []Attribute
	DateOverride *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Propagated reports whether a provider has recorded an issuance for this
// credential.
func (c UserCredential) Propagated() bool {
	return c.ExternalID != ""
}

// Revoked reports whether the provider-side badge reached the terminal
// revocation state for its kind.
func (c UserCredential) Revoked() bool {
	state, ok := RevocationState(c.Credential.Kind)
	return ok && c.State == state
}
