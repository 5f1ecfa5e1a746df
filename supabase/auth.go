package supabase

import (
	"context"
	"net/http"
	"net/url"
)

// AdminCreateUserParams carries service-role user creation fields.
// EmailConfirm skips the verification email, which is how shadow agent
// identities are minted.
type AdminCreateUserParams struct {
	Email        string            `json:"email"`
	Password     string            `json:"password"`
	EmailConfirm bool              `json:"email_confirm"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

// UpdateUserParams carries self-service profile update fields. Empty
// fields are omitted from the request.
type UpdateUserParams struct {
	Email    string            `json:"email,omitempty"`
	Password string            `json:"password,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

// SignUp registers a new user with the public signup flow.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, nil, credentialsBody{Email: email, Password: password}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// SignInWithPassword performs a password grant and returns the token
// bundle.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	query := url.Values{"grant_type": {"password"}}

	var session Session
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, nil, credentialsBody{Email: email, Password: password}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// RefreshSession exchanges a refresh token for a new token bundle.
// GoTrue rotates the refresh token on every exchange.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	query := url.Values{"grant_type": {"refresh_token"}}

	var session Session
	err := c.do(ctx, http.MethodPost, "/auth/v1/token", query, nil, refreshBody{RefreshToken: refreshToken}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetUser resolves an access token to its user record. This is the
// authoritative token validation path.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}

	var user User
	err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, headers, nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a self-service profile change for the token's
// owner.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, params UpdateUserParams) (*User, error) {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}

	var user User
	err := c.do(ctx, http.MethodPut, "/auth/v1/user", nil, headers, params, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SignOut revokes the token's session server-side.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, headers, nil, nil)
}

// AdminCreateUser creates a user via the admin API. The client must
// carry the service-role key.
func (c *Client) AdminCreateUser(ctx context.Context, params AdminCreateUserParams) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", nil, nil, params, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AdminDeleteUser removes a user via the admin API. Used to roll back
// half-provisioned agent identities.
func (c *Client) AdminDeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+userID, nil, nil, nil, nil)
}
