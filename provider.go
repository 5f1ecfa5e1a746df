package ideas

import (
	"context"
	"errors"
	"fmt"

	"github.com/StackRunner1/my-ideas/supabase"
)

// SupabaseAuthProvider adapts the Supabase GoTrue client to the
// [AuthProvider] interface. Password and refresh grants go through the
// anon-key client; admin user creation goes through the service-role
// client.
type SupabaseAuthProvider struct {
	rest  *supabase.Client
	admin *supabase.Client
}

// NewSupabaseAuthProvider describes the newsupabaseauthprovider operation and its observable behavior.
//
// NewSupabaseAuthProvider may return an error when input validation, dependency calls, or security checks fail.
// NewSupabaseAuthProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewSupabaseAuthProvider(rest, admin *supabase.Client) *SupabaseAuthProvider {
	return &SupabaseAuthProvider{
		rest:  rest,
		admin: admin,
	}
}

// SignUp describes the signup operation and its observable behavior.
//
// SignUp may return an error when input validation, dependency calls, or security checks fail.
// SignUp does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *SupabaseAuthProvider) SignUp(ctx context.Context, email, password string) (*TokenGrant, error) {
	sess, err := p.rest.SignUp(ctx, email, password)
	if err != nil {
		if supabase.IsConflict(err) {
			return nil, fmt.Errorf("%w: %v", ErrAccountExists, err)
		}
		if supabase.IsAuthFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrSignupFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthBackendUnavailable, err)
	}
	return grantFromSession(sess), nil
}

// SignInWithPassword describes the signinwithpassword operation and its observable behavior.
//
// SignInWithPassword may return an error when input validation, dependency calls, or security checks fail.
// SignInWithPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *SupabaseAuthProvider) SignInWithPassword(ctx context.Context, email, password string) (*TokenGrant, error) {
	sess, err := p.rest.SignInWithPassword(ctx, email, password)
	if err != nil {
		if supabase.IsAuthFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthBackendUnavailable, err)
	}
	return grantFromSession(sess), nil
}

// RefreshSession describes the refreshsession operation and its observable behavior.
//
// RefreshSession may return an error when input validation, dependency calls, or security checks fail.
// RefreshSession does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *SupabaseAuthProvider) RefreshSession(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	sess, err := p.rest.RefreshSession(ctx, refreshToken)
	if err != nil {
		if supabase.IsAuthFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthBackendUnavailable, err)
	}
	return grantFromSession(sess), nil
}

// GetUser describes the getuser operation and its observable behavior.
//
// GetUser may return an error when input validation, dependency calls, or security checks fail.
// GetUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *SupabaseAuthProvider) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	user, err := p.rest.GetUser(ctx, accessToken)
	if err != nil {
		if supabase.IsAuthFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthBackendUnavailable, err)
	}
	return userFromProvider(user), nil
}

// UpdateUser describes the updateuser operation and its observable behavior.
//
// UpdateUser may return an error when input validation, dependency calls, or security checks fail.
// UpdateUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *SupabaseAuthProvider) UpdateUser(ctx context.Context, accessToken string, update ProfileUpdate) (*AuthUser, error) {
	user, err := p.rest.UpdateUser(ctx, accessToken, supabase.UpdateUserParams{
		Email:    update.Email,
		Password: update.Password,
		Data:     update.Metadata,
	})
	if err != nil {
		if supabase.IsConflict(err) {
			return nil, fmt.Errorf("%w: %v", ErrAccountExists, err)
		}
		if supabase.IsAuthFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthBackendUnavailable, err)
	}
	return userFromProvider(user), nil
}

// SignOut describes the signout operation and its observable behavior.
//
// SignOut may return an error when input validation, dependency calls, or security checks fail.
// SignOut does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *SupabaseAuthProvider) SignOut(ctx context.Context, accessToken string) error {
	if err := p.rest.SignOut(ctx, accessToken); err != nil {
		if supabase.IsAuthFailure(err) {
			return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
		return fmt.Errorf("%w: %v", ErrAuthBackendUnavailable, err)
	}
	return nil
}

// AdminCreateUser describes the admincreateuser operation and its observable behavior.
//
// AdminCreateUser may return an error when input validation, dependency calls, or security checks fail.
// AdminCreateUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *SupabaseAuthProvider) AdminCreateUser(ctx context.Context, input AdminCreateUserInput) (*AuthUser, error) {
	if p.admin == nil {
		return nil, errors.New("admin client not configured")
	}

	user, err := p.admin.AdminCreateUser(ctx, supabase.AdminCreateUserParams{
		Email:        input.Email,
		Password:     input.Password,
		EmailConfirm: input.EmailConfirm,
		UserMetadata: input.Metadata,
	})
	if err != nil {
		if supabase.IsConflict(err) {
			return nil, fmt.Errorf("%w: %v", ErrAccountExists, err)
		}
		if supabase.IsAuthFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrAgentProvisionFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthBackendUnavailable, err)
	}
	return userFromProvider(user), nil
}

func grantFromSession(sess *supabase.Session) *TokenGrant {
	if sess == nil {
		return nil
	}

	grant := &TokenGrant{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresIn:    sess.ExpiresIn,
	}
	if sess.User != nil {
		grant.User = userFromProvider(sess.User)
	}
	return grant
}

func userFromProvider(user *supabase.User) *AuthUser {
	if user == nil {
		return nil
	}
	return &AuthUser{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		Metadata:  user.UserMetadata,
	}
}
