package auth_test

import (
	"errors"
	"testing"
	"time"

	"shilohnova/internal/auth"
	"shilohnova/internal/testsupport"
)

func TestSessionCreateAndValidate(t *testing.T) {
	store := testsupport.NewSessionStoreStub()
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager := auth.NewSessionManager(time.Hour,
		auth.WithStore(store),
		auth.WithClock(func() time.Time { return base }),
	)

	token, expiresAt, err := manager.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if !expiresAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("expected expiry %v, got %v", base.Add(time.Hour), expiresAt)
	}

	ok, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !ok {
		t.Fatal("freshly created session should validate")
	}
}

func TestSessionTokensAreUnique(t *testing.T) {
	manager := auth.NewSessionManager(time.Hour)
	first, _, err := manager.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, _, err := manager.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct session tokens")
	}
}

func TestValidateRejectsUnknownAndEmptyTokens(t *testing.T) {
	manager := auth.NewSessionManager(time.Hour, auth.WithStore(testsupport.NewSessionStoreStub()))
	if ok, err := manager.Validate(""); err != nil || ok {
		t.Fatalf("empty token: got ok=%v err=%v", ok, err)
	}
	if ok, err := manager.Validate("deadbeef"); err != nil || ok {
		t.Fatalf("unknown token: got ok=%v err=%v", ok, err)
	}
}

func TestValidateExpiresSessions(t *testing.T) {
	store := testsupport.NewSessionStoreStub()
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager := auth.NewSessionManager(time.Hour,
		auth.WithStore(store),
		auth.WithClock(func() time.Time { return now }),
	)

	token, _, err := manager.Create()
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now = now.Add(2 * time.Hour)
	ok, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ok {
		t.Fatal("expired session should not validate")
	}
	if store.Len() != 0 {
		t.Fatal("expired session should be deleted from the store")
	}
}

func TestCreatePropagatesStoreFailure(t *testing.T) {
	store := testsupport.NewSessionStoreStub()
	store.SaveErr = errors.New("store offline")
	manager := auth.NewSessionManager(time.Hour, auth.WithStore(store))

	if _, _, err := manager.Create(); !errors.Is(err, store.SaveErr) {
		t.Fatalf("expected store failure, got %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	store := testsupport.NewSessionStoreStub()
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	manager := auth.NewSessionManager(time.Hour,
		auth.WithStore(store),
		auth.WithClock(func() time.Time { return now }),
	)

	store.Seed("stale", now.Add(-time.Minute))
	store.Seed("live", now.Add(time.Minute))

	if err := manager.PurgeExpired(); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one surviving session, got %d", store.Len())
	}
	if _, ok, _ := store.Get("live"); !ok {
		t.Fatal("live session should survive the purge")
	}
}

func TestMemoryStorePurge(t *testing.T) {
	store := auth.NewMemorySessionStore()
	now := time.Now()
	if err := store.Save("stale", now.Add(-time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save("live", now.Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.PurgeExpired(now); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, ok, _ := store.Get("stale"); ok {
		t.Fatal("stale session should be purged")
	}
	if _, ok, _ := store.Get("live"); !ok {
		t.Fatal("live session should remain")
	}
}
