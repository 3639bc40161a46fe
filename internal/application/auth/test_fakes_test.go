package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

type auditLog struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *auditLog) record(_ context.Context, action string, fields map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{action: action, fields: fields})
}

func (a *auditLog) has(action string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.action == action {
			return true
		}
	}
	return false
}

func (a *auditLog) fields(action string) map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.action == action {
			return e.fields
		}
	}
	return nil
}

/*
Fakes for ports
*/

type fakeResolver struct {
	err error
}

func (f *fakeResolver) Resolve(p domain.Provider) (domain.ProviderConfig, error) {
	if f.err != nil {
		return domain.ProviderConfig{}, f.err
	}
	return domain.ProviderConfig{
		Provider:     p,
		AuthURL:      "https://" + string(p) + ".example/authorize",
		TokenURL:     "https://" + string(p) + ".example/token",
		UserInfoURL:  "https://api." + string(p) + ".example/user",
		Scopes:       []string{"read"},
		ClientID:     "cid",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:3000/api/auth/" + string(p) + "/callback",
	}, nil
}

type fakeOAuthClient struct {
	mu sync.Mutex

	state       string
	buildErr    error
	token       domain.OAuthToken
	exchangeErr error
	exchanges   int
	delay       time.Duration
}

func (f *fakeOAuthClient) BuildAuthorizationURL(cfg domain.ProviderConfig) (string, string, error) {
	if f.buildErr != nil {
		return "", "", f.buildErr
	}
	state := f.state
	if state == "" {
		state = "state-token"
	}
	return cfg.AuthURL + "?client_id=" + cfg.ClientID + "&scope=read&state=" + state, state, nil
}

func (f *fakeOAuthClient) ExchangeCode(ctx context.Context, cfg domain.ProviderConfig, code string) (domain.OAuthToken, error) {
	f.mu.Lock()
	f.exchanges++
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.exchangeErr != nil {
		return domain.OAuthToken{}, f.exchangeErr
	}
	return f.token, nil
}

type fakeProfiles struct {
	profile domain.ExternalProfile
	err     error
}

func (f *fakeProfiles) FetchProfile(ctx context.Context, cfg domain.ProviderConfig, accessToken string) (domain.ExternalProfile, error) {
	if f.err != nil {
		return domain.ExternalProfile{}, f.err
	}
	return f.profile, nil
}

type fakeUserStore struct {
	mu sync.Mutex

	nextID  int64
	rows    map[string]domain.User
	inserts int

	findErr   error
	updateErr error
	delay     time.Duration
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{rows: map[string]domain.User{}}
}

func identityKey(p domain.Provider, id string) string { return string(p) + "|" + id }

func (f *fakeUserStore) FindOrCreate(ctx context.Context, nu domain.NewUser) (domain.User, bool, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return domain.User{}, false, f.findErr
	}
	k := identityKey(nu.Provider, nu.ProviderUserID)
	if u, ok := f.rows[k]; ok {
		return u, false, nil
	}

	f.nextID++
	f.inserts++
	u := domain.User{
		ID:             f.nextID,
		Provider:       nu.Provider,
		ProviderUserID: nu.ProviderUserID,
		Username:       nu.Username,
		Email:          nu.Email,
		AvatarURL:      nu.AvatarURL,
		AccessToken:    nu.AccessToken,
		RefreshToken:   nu.RefreshToken,
		CreatedAt:      time.Now(),
	}
	f.rows[k] = u
	return u, true, nil
}

func (f *fakeUserStore) UpdateTokens(ctx context.Context, p domain.Provider, pid, access string, refresh *string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return domain.User{}, f.updateErr
	}
	k := identityKey(p, pid)
	u, ok := f.rows[k]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	u.AccessToken = &access
	u.RefreshToken = refresh
	f.rows[k] = u
	return u, nil
}

func (f *fakeUserStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeStateStore struct {
	mu     sync.Mutex
	states map[string]OAuthStateData

	saveErr    error
	consumeErr error
	consumed   []string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: map[string]OAuthStateData{}}
}

func (f *fakeStateStore) Save(ctx context.Context, state string, data OAuthStateData, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.states[state] = data
	return nil
}

func (f *fakeStateStore) Consume(ctx context.Context, state string) (OAuthStateData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.consumed = append(f.consumed, state)
	if f.consumeErr != nil {
		return OAuthStateData{}, f.consumeErr
	}
	d, ok := f.states[state]
	if !ok {
		return OAuthStateData{}, domain.ErrInvalidState()
	}
	delete(f.states, state)
	return d, nil
}

type fakeSessionStore struct {
	mu   sync.Mutex
	data map[string][]byte

	saveErr   error
	loadErr   error
	deleteErr error
	loads     int
	lastTTL   time.Duration
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{data: map[string][]byte{}}
}

func (f *fakeSessionStore) Save(ctx context.Context, id string, payload []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.data[id] = append([]byte(nil), payload...)
	f.lastTTL = ttl
	return nil
}

func (f *fakeSessionStore) Load(ctx context.Context, id string, ttl time.Duration) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	v, ok := f.data[id]
	if !ok {
		return nil, nil
	}
	f.lastTTL = ttl
	return v, nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.data, id)
	return nil
}

func (f *fakeSessionStore) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.data)
}

// xorSealer is reversible and detects payloads it did not produce.
type xorSealer struct{}

const sealMarker = 0x5a

func (xorSealer) Seal(p []byte) ([]byte, error) {
	out := make([]byte, len(p)+1)
	out[0] = sealMarker
	for i, b := range p {
		out[i+1] = b ^ 0x42
	}
	return out, nil
}

func (xorSealer) Open(s []byte) ([]byte, error) {
	if len(s) == 0 || s[0] != sealMarker {
		return nil, errors.New("message authentication failed")
	}
	out := make([]byte, len(s)-1)
	for i, b := range s[1:] {
		out[i] = b ^ 0x42
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []UserProvisionedEvent
	err    error
	// block, when set, holds every publish until closed
	block chan struct{}
}

func (f *fakePublisher) PublishUserProvisioned(ctx context.Context, evt UserProvisionedEvent) error {
	f.mu.Lock()
	f.events = append(f.events, evt)
	err, block := f.err, f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

/*
Service under test
*/

type testDeps struct {
	oauth     *fakeOAuthClient
	profiles  *fakeProfiles
	users     *fakeUserStore
	states    *fakeStateStore
	sessStore *fakeSessionStore
	pub       *fakePublisher
	audits    *auditLog
	resolver  *fakeResolver
}

func newSvcForTest(t *testing.T) (*Service, *testDeps) {
	t.Helper()

	d := &testDeps{
		oauth: &fakeOAuthClient{token: domain.OAuthToken{AccessToken: "T", TokenType: "bearer"}},
		profiles: &fakeProfiles{profile: domain.ExternalProfile{
			ID:       "12345",
			Username: "alice",
			Email:    domain.StrPtr("a@x.com"),
		}},
		users:     newFakeUserStore(),
		states:    newFakeStateStore(),
		sessStore: newFakeSessionStore(),
		pub:       &fakePublisher{},
		audits:    &auditLog{},
		resolver:  &fakeResolver{},
	}

	sessions := NewSessionManager(d.sessStore, xorSealer{}, time.Hour)
	svc := NewService(d.resolver, d.oauth, d.profiles, d.users, d.states, sessions, d.pub, Config{
		StateTTL:        time.Minute,
		ProviderTimeout: time.Second,
	}).WithAudit(d.audits.record)

	return svc, d
}

// begin runs Begin and returns the state the browser would carry back.
func begin(t *testing.T, svc *Service, provider string) string {
	t.Helper()
	res, err := svc.Begin(context.Background(), provider)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return res.State
}
