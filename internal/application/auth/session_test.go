package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

func newManagerForTest() (*SessionManager, *fakeSessionStore) {
	store := newFakeSessionStore()
	return NewSessionManager(store, xorSealer{}, 2*time.Hour), store
}

func TestSessionManager_EstablishAndRead(t *testing.T) {
	m, store := newManagerForTest()
	ctx := context.Background()

	su := domain.SessionUser{
		UserID:       7,
		Username:     "alice",
		Email:        domain.StrPtr("a@x.com"),
		Provider:     domain.ProviderGitLab,
		AccessToken:  "T",
		RefreshToken: domain.StrPtr("R"),
	}
	sess, err := m.Establish(ctx, "", su)
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	if sess.ID == "" || sess.ExpiresAt.IsZero() {
		t.Fatalf("unexpected session %+v", sess)
	}
	if store.lastTTL != 2*time.Hour {
		t.Fatalf("ttl = %s", store.lastTTL)
	}

	// stored payload must not be readable as-is
	if raw := store.data[sess.ID]; len(raw) == 0 || raw[0] != sealMarker {
		t.Fatalf("payload was not sealed")
	}

	got, err := m.Read(ctx, sess.ID)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got == nil || got.UserID != 7 || got.Username != "alice" || domain.StrVal(got.Email) != "a@x.com" ||
		got.Provider != domain.ProviderGitLab || got.AccessToken != "T" || domain.StrVal(got.RefreshToken) != "R" {
		t.Fatalf("unexpected session user %+v", got)
	}
}

func TestSessionManager_EstablishRotatesPreviousID(t *testing.T) {
	m, store := newManagerForTest()
	ctx := context.Background()

	first, err := m.Establish(ctx, "", domain.SessionUser{UserID: 1})
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Establish(ctx, first.ID, domain.SessionUser{UserID: 2})
	if err != nil {
		t.Fatal(err)
	}

	if first.ID == second.ID {
		t.Fatalf("expected a new id")
	}
	if store.size() != 1 {
		t.Fatalf("expected the previous session to be deleted, have %d", store.size())
	}
}

func TestSessionManager_ReadMissing(t *testing.T) {
	m, store := newManagerForTest()

	got, err := m.Read(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", got, err)
	}

	got, err = m.Read(context.Background(), "")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for empty id")
	}
	if store.loads != 1 {
		t.Fatalf("empty id should not hit the store")
	}
}

func TestSessionManager_ReadExtendsTTL(t *testing.T) {
	m, store := newManagerForTest()
	ctx := context.Background()

	sess, _ := m.Establish(ctx, "", domain.SessionUser{UserID: 1})
	store.lastTTL = 0

	if _, err := m.Read(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if store.lastTTL != 2*time.Hour {
		t.Fatalf("expected load to extend by the session ttl, got %s", store.lastTTL)
	}
}

func TestSessionManager_ReadAbsentFieldsDecodeToZero(t *testing.T) {
	m, store := newManagerForTest()

	sealed, _ := xorSealer{}.Seal([]byte(`{"user_id":3}`))
	store.data["partial"] = sealed

	got, err := m.Read(context.Background(), "partial")
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != 3 || got.Username != "" || got.Email != nil || got.RefreshToken != nil {
		t.Fatalf("unexpected %+v", got)
	}
}

func TestSessionManager_ReadTamperedPayload(t *testing.T) {
	m, store := newManagerForTest()
	store.data["bad"] = []byte("plaintext")

	_, err := m.Read(context.Background(), "bad")
	requireErrCode(t, err, "session_error")
}

func TestSessionManager_ReadCorruptJSON(t *testing.T) {
	m, store := newManagerForTest()
	sealed, _ := xorSealer{}.Seal([]byte(`{not json`))
	store.data["bad"] = sealed

	_, err := m.Read(context.Background(), "bad")
	requireErrCode(t, err, "session_error")
}

func TestSessionManager_StoreErrors(t *testing.T) {
	m, store := newManagerForTest()
	ctx := context.Background()

	store.loadErr = errors.New("boom")
	_, err := m.Read(ctx, "id")
	requireErrCode(t, err, "session_error")

	store.deleteErr = domain.ErrRedisUnavailable(errors.New("down"))
	err = m.Clear(ctx, "id")
	requireErrCode(t, err, "redis_unavailable")

	_, err = m.Establish(ctx, "old", domain.SessionUser{})
	requireErrCode(t, err, "redis_unavailable")
}

func TestSessionManager_ClearIsIdempotent(t *testing.T) {
	m, _ := newManagerForTest()
	ctx := context.Background()

	sess, _ := m.Establish(ctx, "", domain.SessionUser{UserID: 1})
	for i := 0; i < 2; i++ {
		if err := m.Clear(ctx, sess.ID); err != nil {
			t.Fatalf("clear #%d: %v", i+1, err)
		}
	}
	if err := m.Clear(ctx, ""); err != nil {
		t.Fatalf("empty id: %v", err)
	}

	got, _ := m.Read(ctx, sess.ID)
	if got != nil {
		t.Fatalf("session should be gone")
	}
}

func TestSessionManager_RandomFailure(t *testing.T) {
	m, _ := newManagerForTest()
	m.newID = func() (string, error) { return "", errors.New("entropy") }

	_, err := m.Establish(context.Background(), "", domain.SessionUser{})
	requireErrCode(t, err, "random_failed")
}
