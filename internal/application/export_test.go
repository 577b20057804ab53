package application

import "time"

// SetAccredibleClock replaces the clock used for expiry timestamps.
func SetAccredibleClock(p *AccrediblePropagator, now func() time.Time) {
	p.now = now
}

// LockCredential takes the issuer's lock on one user credential.
func LockCredential(s *BadgeIssuer, username string, templateID int64) func() {
	return s.locks.lock(username, templateID)
}
