package application

import "sync"

type credentialKey struct {
	username   string
	templateID int64
}

// credentialLocks serializes work on one user credential across Award, Revoke
// and the sweeper. Entries are dropped once nobody holds or waits on them.
type credentialLocks struct {
	mu      sync.Mutex
	entries map[credentialKey]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newCredentialLocks() *credentialLocks {
	return &credentialLocks{entries: make(map[credentialKey]*lockEntry)}
}

// lock blocks until the credential of username for templateID is free and
// returns the function that releases it.
func (l *credentialLocks) lock(username string, templateID int64) func() {
	key := credentialKey{username: username, templateID: templateID}

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// size reports how many credentials are currently locked or awaited.
func (l *credentialLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
