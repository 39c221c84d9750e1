// Package testsupport holds shared fakes for package tests.
package testsupport

import (
	"sync"
	"time"

	"shilohnova/internal/auth"
)

// SessionStoreStub is an in-memory auth.SessionStore for tests. It allows
// seeding records with custom expirations, inspecting stored tokens, and
// injecting failures.
type SessionStoreStub struct {
	mu       sync.RWMutex
	sessions map[string]auth.SessionRecord

	// SaveErr, when set, is returned from every Save call.
	SaveErr error
}

// NewSessionStoreStub constructs a SessionStoreStub with empty state.
func NewSessionStoreStub() *SessionStoreStub {
	return &SessionStoreStub{sessions: make(map[string]auth.SessionRecord)}
}

// Save records the session details for the provided token.
func (s *SessionStoreStub) Save(token string, expiresAt time.Time) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	s.sessions[token] = auth.SessionRecord{Token: token, ExpiresAt: expiresAt.UTC()}
	s.mu.Unlock()
	return nil
}

// Get retrieves the session record for the provided token.
func (s *SessionStoreStub) Get(token string) (auth.SessionRecord, bool, error) {
	s.mu.RLock()
	record, ok := s.sessions[token]
	s.mu.RUnlock()
	return record, ok, nil
}

// Delete removes the session token from the store.
func (s *SessionStoreStub) Delete(token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// PurgeExpired removes sessions that have passed their expiration.
func (s *SessionStoreStub) PurgeExpired(now time.Time) error {
	s.mu.Lock()
	for token, record := range s.sessions {
		if !record.ExpiresAt.After(now) {
			delete(s.sessions, token)
		}
	}
	s.mu.Unlock()
	return nil
}

// Len reports how many sessions the stub currently holds.
func (s *SessionStoreStub) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Seed stores a record directly, bypassing SaveErr.
func (s *SessionStoreStub) Seed(token string, expiresAt time.Time) {
	s.mu.Lock()
	s.sessions[token] = auth.SessionRecord{Token: token, ExpiresAt: expiresAt.UTC()}
	s.mu.Unlock()
}
