package ideas

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Supabase.URL = "http://127.0.0.1:54321"
	cfg.Supabase.AnonKey = "test-anon-key"
	cfg.Supabase.ServiceRoleKey = "test-service-key"
	cfg.Encryption.Key = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x2a}, 32))
	return cfg
}

type fakeAuthProvider struct {
	mu sync.Mutex

	signUpCalls      int
	signInCalls      int
	refreshCalls     int
	getUserCalls     int
	signOutCalls     int
	adminCreateCalls int
	updateUserCalls  int

	signUpErr     error
	signInErr     error
	refreshErr    error
	updateUserErr error

	expiresIn int64
	grants    int

	lastSignInEmail    string
	lastSignInPassword string
	lastAdminInput     AdminCreateUserInput
	lastProfileUpdate  ProfileUpdate
}

func (p *fakeAuthProvider) nextGrant(userID, email string) *TokenGrant {
	p.grants++
	return &TokenGrant{
		AccessToken:  fmt.Sprintf("access-%d", p.grants),
		RefreshToken: fmt.Sprintf("refresh-%d", p.grants),
		ExpiresIn:    p.expiresIn,
		User:         &AuthUser{ID: userID, Email: email},
	}
}

func (p *fakeAuthProvider) SignUp(_ context.Context, email, _ string) (*TokenGrant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.signUpCalls++
	if p.signUpErr != nil {
		return nil, p.signUpErr
	}
	return p.nextGrant("u1", email), nil
}

func (p *fakeAuthProvider) SignInWithPassword(_ context.Context, email, password string) (*TokenGrant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.signInCalls++
	p.lastSignInEmail = email
	p.lastSignInPassword = password
	if p.signInErr != nil {
		return nil, p.signInErr
	}
	return p.nextGrant("agent-u1", email), nil
}

func (p *fakeAuthProvider) RefreshSession(_ context.Context, _ string) (*TokenGrant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	return p.nextGrant("agent-u1", ""), nil
}

func (p *fakeAuthProvider) GetUser(_ context.Context, _ string) (*AuthUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.getUserCalls++
	return &AuthUser{ID: "u1", Email: "alice@example.com"}, nil
}

func (p *fakeAuthProvider) UpdateUser(_ context.Context, _ string, update ProfileUpdate) (*AuthUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.updateUserCalls++
	p.lastProfileUpdate = update
	if p.updateUserErr != nil {
		return nil, p.updateUserErr
	}
	email := update.Email
	if email == "" {
		email = "alice@example.com"
	}
	return &AuthUser{ID: "u1", Email: email}, nil
}

func (p *fakeAuthProvider) SignOut(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.signOutCalls++
	return nil
}

func (p *fakeAuthProvider) AdminCreateUser(_ context.Context, input AdminCreateUserInput) (*AuthUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.adminCreateCalls++
	p.lastAdminInput = input
	return &AuthUser{ID: "agent-u1", Email: input.Email}, nil
}

type fakeCredentialStore struct {
	mu sync.Mutex

	creds map[string]AgentCredential

	createCalls int
	getCalls    int
	touchCalls  int

	getErr    error
	createErr error
	touchErr  error
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{
		creds: make(map[string]AgentCredential),
	}
}

func (s *fakeCredentialStore) Create(_ context.Context, cred AgentCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.creds[cred.UserID]; exists {
		return ErrAgentAlreadyProvisioned
	}
	s.creds[cred.UserID] = cred
	return nil
}

func (s *fakeCredentialStore) Get(_ context.Context, userID string) (*AgentCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	cred, ok := s.creds[userID]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	out := cred
	return &out, nil
}

func (s *fakeCredentialStore) TouchLastUsed(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touchCalls++
	return s.touchErr
}

func buildTestEngine(t *testing.T, cfg Config, auth AuthProvider, store CredentialStore) (*Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuthProvider(auth).
		WithCredentialStore(store).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, mr, func() {
		engine.Close()
		mr.Close()
	}
}

func makeTestToken(t *testing.T, sub string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
	}).SignedString([]byte("test-signing-key"))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return token
}
