package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	ideas "github.com/StackRunner1/my-ideas"
)

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestSignupSetsSessionCookies(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.request(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    "alice@example.com",
		"password": "correct-horse",
	}, false)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["user_id"] != "u1" || body["email"] != "alice@example.com" {
		t.Fatalf("body = %v", body)
	}

	access := findCookie(rec, fx.cfg.HumanSession.AccessCookieName)
	refresh := findCookie(rec, fx.cfg.HumanSession.RefreshCookieName)
	if access == nil || refresh == nil {
		t.Fatal("both session cookies must be set")
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Fatal("session cookies must be httpOnly")
	}
	if refresh.MaxAge != access.MaxAge*fx.cfg.HumanSession.RefreshTTLFactor {
		t.Fatalf("refresh max-age %d, access %d", refresh.MaxAge, access.MaxAge)
	}
}

func TestSignupValidation(t *testing.T) {
	fx := newServerFixture(t, nil)

	cases := []map[string]string{
		{"email": "not-an-email", "password": "long-enough"},
		{"email": "bob@example.com", "password": "short"},
	}
	for _, body := range cases {
		rec := fx.request(t, http.MethodPost, "/api/auth/signup", body, false)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %v: status = %d", body, rec.Code)
		}
		if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
			t.Fatalf("body %v: code = %q", body, code)
		}
	}
	if fx.auth.signUpCalls != 0 {
		t.Fatalf("invalid input reached the provider %d times", fx.auth.signUpCalls)
	}
}

func TestLoginSetsSessionCookies(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.request(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "correct-horse",
	}, false)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if findCookie(rec, fx.cfg.HumanSession.AccessCookieName) == nil {
		t.Fatal("access cookie must be set on login")
	}
	if fx.auth.signInCalls != 1 {
		t.Fatalf("signInCalls = %d", fx.auth.signInCalls)
	}
}

func TestRefreshRequiresCookie(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.request(t, http.MethodPost, "/api/auth/refresh", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "REFRESH_MISSING" {
		t.Fatalf("code = %q", code)
	}
}

func TestRefreshRotatesAndCoolsDown(t *testing.T) {
	fx := newServerFixture(t, nil)

	refresh := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: fx.cfg.HumanSession.AccessCookieName, Value: makeToken("u1")})
		req.AddCookie(&http.Cookie{Name: fx.cfg.HumanSession.RefreshCookieName, Value: "refresh-1"})
		rec := httptest.NewRecorder()
		fx.handler.ServeHTTP(rec, req)
		return rec
	}

	first := refresh()
	if first.Code != http.StatusOK {
		t.Fatalf("first refresh: status = %d, body %s", first.Code, first.Body.String())
	}
	if findCookie(first, fx.cfg.HumanSession.RefreshCookieName) == nil {
		t.Fatal("refresh must rotate the refresh cookie")
	}

	second := refresh()
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second refresh: status = %d, body %s", second.Code, second.Body.String())
	}
	body := decodeJSON(t, second)
	envelope := body["error"].(map[string]any)
	if envelope["code"] != "REFRESH_COOLDOWN" {
		t.Fatalf("code = %v", envelope["code"])
	}
	if wait, _ := envelope["retry_after_seconds"].(float64); wait < 1 {
		t.Fatalf("retry_after_seconds = %v", envelope["retry_after_seconds"])
	}
	if fx.auth.refreshCalls != 1 {
		t.Fatalf("throttled refresh reached the provider: %d calls", fx.auth.refreshCalls)
	}

	// After the cooldown window the refresh goes through again.
	fx.redis.FastForward(fx.cfg.Throttle.RefreshCooldown * 2)
	third := refresh()
	if third.Code != http.StatusOK {
		t.Fatalf("post-cooldown refresh: status = %d, body %s", third.Code, third.Body.String())
	}
}

func TestRefreshInvalidTokenClearsCookies(t *testing.T) {
	fx := newServerFixture(t, nil)
	fx.auth.refreshErr = ideas.ErrRefreshInvalid

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: fx.cfg.HumanSession.RefreshCookieName, Value: "stale-refresh"})
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	for _, name := range []string{fx.cfg.HumanSession.AccessCookieName, fx.cfg.HumanSession.RefreshCookieName} {
		cookie := findCookie(rec, name)
		if cookie == nil || cookie.MaxAge >= 0 {
			t.Fatalf("cookie %q must be expired after invalid refresh, got %+v", name, cookie)
		}
	}
}

func TestRefreshAcceptsBodyToken(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.request(t, http.MethodPost, "/api/auth/refresh", map[string]string{
		"refresh_token": "refresh-from-body",
	}, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if fx.auth.refreshCalls != 1 {
		t.Fatalf("refreshCalls = %d", fx.auth.refreshCalls)
	}
}

func TestUpdateProfileChangesEmail(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.request(t, http.MethodPatch, "/api/auth/me", map[string]string{
		"email": "alice+new@example.com",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	if body["email"] != "alice+new@example.com" {
		t.Fatalf("email = %v", body["email"])
	}
	if fx.auth.updateCalls != 1 {
		t.Fatalf("updateCalls = %d", fx.auth.updateCalls)
	}
}

func TestUpdateProfileValidation(t *testing.T) {
	fx := newServerFixture(t, nil)

	cases := []map[string]string{
		{"email": "not-an-email"},
		{"password": "short"},
		{},
	}
	for _, body := range cases {
		rec := fx.request(t, http.MethodPatch, "/api/auth/me", body, true)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %v: status = %d, body %s", body, rec.Code, rec.Body.String())
		}
	}
	if fx.auth.updateCalls != 0 {
		t.Fatalf("invalid input reached the provider %d times", fx.auth.updateCalls)
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	fx := newServerFixture(t, nil)

	rec := fx.request(t, http.MethodPost, "/api/auth/logout", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, name := range []string{fx.cfg.HumanSession.AccessCookieName, fx.cfg.HumanSession.RefreshCookieName} {
		cookie := findCookie(rec, name)
		if cookie == nil || cookie.MaxAge >= 0 {
			t.Fatalf("cookie %q must be expired, got %+v", name, cookie)
		}
	}
}
