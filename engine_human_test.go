package ideas

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/StackRunner1/my-ideas/session"
)

func TestLoginThrottleAfterMaxAttempts(t *testing.T) {
	auth := &fakeAuthProvider{
		expiresIn: 3600,
		signInErr: ErrInvalidCredentials,
	}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	ctx := WithClientIP(context.Background(), "203.0.113.7")

	for i := 0; i < 5; i++ {
		_, err := engine.Login(ctx, "alice@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	_, err := engine.Login(ctx, "alice@example.com", "wrong")
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited after budget exhausted, got %v", err)
	}

	// Even a correct password is rejected while the cooldown holds.
	auth.signInErr = nil
	_, err = engine.Login(ctx, "alice@example.com", "right")
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected throttle to gate before provider call, got %v", err)
	}
}

func TestLoginSuccessResetsThrottle(t *testing.T) {
	auth := &fakeAuthProvider{
		expiresIn: 3600,
		signInErr: ErrInvalidCredentials,
	}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = engine.Login(ctx, "alice@example.com", "wrong")
	}

	auth.signInErr = nil
	sess, err := engine.Login(ctx, "alice@example.com", "right")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if sess.UserID == "" || sess.AccessToken == "" {
		t.Fatal("expected populated session")
	}

	attempts, err := engine.rateLimiter.GetLoginAttempts(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("attempts lookup failed: %v", err)
	}
	if attempts != 0 {
		t.Fatalf("expected counter reset after success, got %d", attempts)
	}
}

func TestRefreshCooldownRejectsRapidRetry(t *testing.T) {
	auth := &fakeAuthProvider{expiresIn: 3600}
	store := newFakeCredentialStore()

	engine, mr, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	ctx := context.Background()

	sess, wait, err := engine.Refresh(ctx, "refresh-token-1")
	if err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}
	if sess == nil || wait != 0 {
		t.Fatal("expected clean first refresh")
	}

	_, wait, err = engine.Refresh(ctx, "refresh-token-1")
	if !errors.Is(err, ErrRefreshCooldown) {
		t.Fatalf("expected ErrRefreshCooldown, got %v", err)
	}
	if wait <= 0 || wait > 5*time.Second {
		t.Fatalf("expected remaining wait within cooldown, got %v", wait)
	}
	if auth.refreshCalls != 1 {
		t.Fatalf("expected cooldown to gate before provider call, got %d calls", auth.refreshCalls)
	}

	mr.FastForward(6 * time.Second)

	if _, _, err := engine.Refresh(ctx, "refresh-token-1"); err != nil {
		t.Fatalf("refresh after cooldown failed: %v", err)
	}
}

func TestRefreshCooldownKeyedByUserNotToken(t *testing.T) {
	auth := &fakeAuthProvider{expiresIn: 3600}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	access := makeTestToken(t, "u1")
	ctx := WithAccessToken(context.Background(), access)

	if _, _, err := engine.Refresh(ctx, "rotating-token-a"); err != nil {
		t.Fatalf("first refresh failed: %v", err)
	}

	// Rotated token, same user: still inside the cooldown window.
	_, _, err := engine.Refresh(ctx, "rotating-token-b")
	if !errors.Is(err, ErrRefreshCooldown) {
		t.Fatalf("expected per-user cooldown to apply, got %v", err)
	}
}

func TestRefreshCooldownDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Throttle.RefreshCooldown = 0

	auth := &fakeAuthProvider{expiresIn: 3600}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, cfg, auth, store)
	defer done()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, _, err := engine.Refresh(ctx, "token"); err != nil {
			t.Fatalf("refresh %d failed: %v", i+1, err)
		}
	}
	if auth.refreshCalls != 3 {
		t.Fatalf("expected 3 provider calls, got %d", auth.refreshCalls)
	}
}

func TestSignupProvisionsAgent(t *testing.T) {
	auth := &fakeAuthProvider{expiresIn: 3600}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	sess, err := engine.Signup(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if sess.UserID != "u1" {
		t.Fatalf("expected user id u1, got %q", sess.UserID)
	}
	if auth.adminCreateCalls != 1 {
		t.Fatalf("expected agent provisioning during signup, got %d admin calls", auth.adminCreateCalls)
	}
	if store.createCalls != 1 {
		t.Fatalf("expected credential row insert, got %d", store.createCalls)
	}
}

func TestSignupSurvivesProvisioningFailure(t *testing.T) {
	auth := &fakeAuthProvider{expiresIn: 3600}
	store := newFakeCredentialStore()
	store.createErr = errors.New("insert rejected")

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	sess, err := engine.Signup(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("signup should not fail on provisioning error: %v", err)
	}
	if sess.AccessToken == "" {
		t.Fatal("expected human session despite provisioning failure")
	}
}

func TestSignupDuplicateAccount(t *testing.T) {
	auth := &fakeAuthProvider{
		expiresIn: 3600,
		signUpErr: ErrAccountExists,
	}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	_, err := engine.Signup(context.Background(), "alice@example.com", "password123")
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestLogoutRevokesAgentAndProviderSession(t *testing.T) {
	auth := &fakeAuthProvider{expiresIn: 3600}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	engine.sessions.Put("u1", session.Agent{
		AccessToken: "agent-access",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	engine.Logout(context.Background(), makeTestToken(t, "u1"))

	if auth.signOutCalls != 1 {
		t.Fatalf("expected provider sign-out, got %d", auth.signOutCalls)
	}
	if engine.SessionCacheLen() != 0 {
		t.Fatal("expected agent session to be evicted on logout")
	}
}

func TestHumanSessionDefaultExpiresIn(t *testing.T) {
	auth := &fakeAuthProvider{expiresIn: 0}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	sess, err := engine.Login(context.Background(), "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if sess.ExpiresIn != 3600 {
		t.Fatalf("expected default expires_in 3600, got %d", sess.ExpiresIn)
	}
}

func TestCurrentUserTokenValidation(t *testing.T) {
	auth := &fakeAuthProvider{expiresIn: 3600}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	if _, err := engine.CurrentUser(context.Background(), ""); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if _, err := engine.CurrentUser(context.Background(), "not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if auth.getUserCalls != 0 {
		t.Fatal("expected malformed tokens to be rejected locally")
	}

	user, err := engine.CurrentUser(context.Background(), makeTestToken(t, "u1"))
	if err != nil {
		t.Fatalf("current user failed: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("expected provider-resolved user, got %q", user.ID)
	}
}

func TestUpdateProfile(t *testing.T) {
	auth := &fakeAuthProvider{expiresIn: 3600}
	store := newFakeCredentialStore()

	engine, _, done := buildTestEngine(t, testConfig(), auth, store)
	defer done()

	ctx := context.Background()

	if _, err := engine.UpdateProfile(ctx, "", ProfileUpdate{Email: "new@example.com"}); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
	if _, err := engine.UpdateProfile(ctx, "not-a-jwt", ProfileUpdate{Email: "new@example.com"}); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	token := makeTestToken(t, "u1")
	if _, err := engine.UpdateProfile(ctx, token, ProfileUpdate{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty update, got %v", err)
	}
	if auth.updateUserCalls != 0 {
		t.Fatal("expected invalid updates to be rejected locally")
	}

	user, err := engine.UpdateProfile(ctx, token, ProfileUpdate{Email: "new@example.com"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Fatalf("email = %q", user.Email)
	}
	if auth.lastProfileUpdate.Email != "new@example.com" {
		t.Fatalf("provider saw %+v", auth.lastProfileUpdate)
	}
}
