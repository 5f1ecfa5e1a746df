package httpapi

import (
	"net/http"
	"strings"

	ideas "github.com/StackRunner1/my-ideas"
)

// setSessionCookies writes the httpOnly access and refresh cookies for
// a human session. The refresh cookie outlives the access cookie by
// the configured factor so silent refresh keeps working after the
// access token expires.
func setSessionCookies(w http.ResponseWriter, cfg ideas.HumanSessionConfig, sess *ideas.HumanSession) {
	accessMaxAge := int(sess.ExpiresIn)
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.AccessCookieName,
		Value:    sess.AccessToken,
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		MaxAge:   accessMaxAge,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: cfg.SameSitePolicy,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.RefreshCookieName,
		Value:    sess.RefreshToken,
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		MaxAge:   accessMaxAge * cfg.RefreshTTLFactor,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: cfg.SameSitePolicy,
	})
}

// clearSessionCookies expires both session cookies.
func clearSessionCookies(w http.ResponseWriter, cfg ideas.HumanSessionConfig) {
	for _, name := range []string{cfg.AccessCookieName, cfg.RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     cfg.CookiePath,
			Domain:   cfg.CookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.SecureCookies,
			SameSite: cfg.SameSitePolicy,
		})
	}
}

// accessTokenFromRequest extracts the access token, cookie first, then
// the Authorization bearer header.
func accessTokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// refreshTokenFromRequest extracts the refresh token from its cookie
// or, as a fallback for non-browser clients, a JSON body field decoded
// by the caller.
func refreshTokenFromRequest(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
