package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// SessionStore defines the persistence contract for session tokens.
type SessionStore interface {
	Save(token string, expiresAt time.Time) error
	Get(token string) (SessionRecord, bool, error)
	Delete(token string) error
	PurgeExpired(now time.Time) error
}

// SessionRecord captures a session retrieved from the backing store.
type SessionRecord struct {
	Token     string
	ExpiresAt time.Time
}

// SessionOption configures a SessionManager instance.
type SessionOption func(*SessionManager)

// WithStore injects a custom SessionStore implementation.
func WithStore(store SessionStore) SessionOption {
	return func(m *SessionManager) {
		m.store = store
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// SessionManager issues random nonce tokens for the single operator account
// and validates them against a backing store. Tokens expire after the
// configured TTL; there is no idle refresh and no per-user identity.
type SessionManager struct {
	store        SessionStore
	ttl          time.Duration
	tokenFactory func() (string, error)
	now          func() time.Time
}

// DefaultSessionTTL applies when no TTL is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

// NewSessionManager constructs a SessionManager with the provided TTL and
// options. It defaults to an in-memory store for single-instance deployments.
func NewSessionManager(ttl time.Duration, opts ...SessionOption) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	manager := &SessionManager{
		ttl:          ttl,
		tokenFactory: generateToken,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}
	if manager.store == nil {
		manager.store = NewMemorySessionStore()
	}
	return manager
}

// Create issues a new session token.
func (m *SessionManager) Create() (string, time.Time, error) {
	token, err := m.tokenFactory()
	if err != nil {
		return "", time.Time{}, err
	}
	expiresAt := m.now().Add(m.ttl).UTC()
	if err := m.store.Save(token, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate reports whether the token identifies a live session. Expired
// tokens are removed from the store as a side effect.
func (m *SessionManager) Validate(token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	record, ok, err := m.store.Get(token)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if m.now().After(record.ExpiresAt) {
		_ = m.store.Delete(token)
		return false, nil
	}
	return true, nil
}

// PurgeExpired removes expired sessions from the backing store.
func (m *SessionManager) PurgeExpired() error {
	return m.store.PurgeExpired(m.now())
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
