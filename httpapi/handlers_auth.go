package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	ideas "github.com/StackRunner1/my-ideas"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ExpiresIn int64  `json:"expires_in"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if err := validateCredentials(req); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := s.engine.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setSessionCookies(w, s.cfg.HumanSession, sess)
	writeJSON(w, http.StatusCreated, sessionResponse{
		UserID:    sess.UserID,
		Email:     sess.Email,
		ExpiresIn: sess.ExpiresIn,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeErrorCode(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required")
		return
	}

	sess, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setSessionCookies(w, s.cfg.HumanSession, sess)
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:    sess.UserID,
		Email:     sess.Email,
		ExpiresIn: sess.ExpiresIn,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := refreshTokenFromRequest(r, s.cfg.HumanSession.RefreshCookieName)
	if refreshToken == "" {
		// Non-browser clients send the token in the body instead of a
		// cookie.
		var req refreshRequest
		if err := decodeBody(r, &req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken == "" {
		writeErrorCode(w, r, http.StatusUnauthorized, "REFRESH_MISSING", "no refresh token")
		return
	}

	// The access token, when present, keys the refresh cooldown to the
	// user instead of the rotating refresh token.
	ctx := r.Context()
	if access := accessTokenFromRequest(r, s.cfg.HumanSession.AccessCookieName); access != "" {
		ctx = ideas.WithAccessToken(ctx, access)
	}

	sess, wait, err := s.engine.Refresh(ctx, refreshToken)
	if err != nil {
		if wait > 0 {
			writeThrottled(w, r, "REFRESH_COOLDOWN", "refresh attempted too soon", int64(wait.Seconds())+1)
			return
		}
		// A dead refresh token must not stay in the browser, or every
		// subsequent request repeats this failure.
		if errors.Is(err, ideas.ErrRefreshInvalid) || errors.Is(err, ideas.ErrTokenInvalid) {
			clearSessionCookies(w, s.cfg.HumanSession)
		}
		writeError(w, r, err)
		return
	}

	setSessionCookies(w, s.cfg.HumanSession, sess)
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:    sess.UserID,
		Email:     sess.Email,
		ExpiresIn: sess.ExpiresIn,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := accessTokenFromRequest(r, s.cfg.HumanSession.AccessCookieName)
	if token != "" {
		s.engine.Logout(r.Context(), token)
	}
	clearSessionCookies(w, s.cfg.HumanSession)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, r, ideas.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    user.ID,
		"email": user.Email,
	})
}

type profileUpdateRequest struct {
	Email    string            `json:"email,omitempty"`
	Password string            `json:"password,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
			writeErrorCode(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "a valid email is required")
			return
		}
	}
	if req.Password != "" && len(req.Password) < 8 {
		writeErrorCode(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "password must be at least 8 characters")
		return
	}

	token := accessTokenFromRequest(r, s.cfg.HumanSession.AccessCookieName)
	user, err := s.engine.UpdateProfile(r.Context(), token, ideas.ProfileUpdate{
		Email:    req.Email,
		Password: req.Password,
		Metadata: req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":    user.ID,
		"email": user.Email,
	})
}

func validateCredentials(req credentialsRequest) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		return fmt.Errorf("%w: a valid email is required", ideas.ErrValidation)
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ideas.ErrValidation)
	}
	return nil
}
