package model

import "time"

// BadgeEvent is published whenever a credential is awarded or revoked.
type BadgeEvent struct {
	ID         string
	Type       EventType
	OccurredAt time.Time
	Credential UserCredential
}
