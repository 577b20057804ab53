package model

// CredentialKind discriminates the definition a user credential points at.
type CredentialKind string

const (
	CredentialKindBadgeTemplate CredentialKind = "badge_template"        // Provider-less base definition.
	CredentialKindCredly        CredentialKind = "credly_badge_template" // Credly badge template.
	CredentialKindAccredible    CredentialKind = "accredible_group"      // Accredible group.
)

// Valid reports whether k is one of the known kinds.
func (k CredentialKind) Valid() bool {
	switch k {
	case CredentialKindBadgeTemplate, CredentialKindCredly, CredentialKindAccredible:
		return true
	}
	return false
}

// CredentialStatus is the local status of a user credential.
type CredentialStatus string

const (
	CredentialStatusAwarded CredentialStatus = "awarded"
	CredentialStatusRevoked CredentialStatus = "revoked"
)

// BadgeState mirrors the provider-side lifecycle of an issued badge.
type BadgeState string

const (
	BadgeStateNone  BadgeState = ""
	BadgeStateError BadgeState = "error"
)

// Credly badge states.
const (
	CredlyStateCreated    BadgeState = "created"
	CredlyStateNoResponse BadgeState = "no_response"
	CredlyStatePending    BadgeState = "pending"
	CredlyStateRejected   BadgeState = "rejected"
	CredlyStateAccepted   BadgeState = "accepted"
	CredlyStateRevoked    BadgeState = "revoked"
	CredlyStateExpired    BadgeState = "expired"
)

// Accredible badge states.
const (
	AccredibleStateCreated    BadgeState = "created"
	AccredibleStateNoResponse BadgeState = "no_response"
	AccredibleStateAccepted   BadgeState = "accepted"
	AccredibleStateExpired    BadgeState = "expired"
)

// RevocationState returns the provider state after which a credential of the
// given kind can no longer be re-awarded. The second value is false for kinds
// without a provider.
func RevocationState(kind CredentialKind) (BadgeState, bool) {
	switch kind {
	case CredentialKindCredly:
		return CredlyStateRevoked, true
	case CredentialKindAccredible:
		return AccredibleStateExpired, true
	}
	return BadgeStateNone, false
}

// EventType identifies a badge notification.
type EventType string

const (
	EventBadgeAwarded EventType = "badge.awarded"
	EventBadgeRevoked EventType = "badge.revoked"
)
