package ideas

import (
	"context"
	"time"
)

// AuthUser is the provider-side identity record returned by token and
// admin lookups.
type AuthUser struct {
	ID        string
	Email     string
	CreatedAt time.Time
	Metadata  map[string]string
}

// TokenGrant is the token bundle returned by password, signup, and
// refresh grants. ExpiresIn is in seconds; zero means the provider
// omitted it and the configured default applies.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         *AuthUser
}

// AdminCreateUserInput carries the fields for service-role user
// creation.
type AdminCreateUserInput struct {
	Email        string
	Password     string
	EmailConfirm bool
	Metadata     map[string]string
}

// ProfileUpdate carries the self-service fields a user may change on
// their own record. Zero-valued fields are left untouched.
type ProfileUpdate struct {
	Email    string
	Password string
	Metadata map[string]string
}

// IsZero reports whether the update carries no changes.
func (u ProfileUpdate) IsZero() bool {
	return u.Email == "" && u.Password == "" && len(u.Metadata) == 0
}

// AuthProvider is the primary interface that callers must implement to
// integrate the engine with their auth backend. It covers password and
// refresh grants, token introspection, profile updates, sign-out, and
// service-role user creation.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string) (*TokenGrant, error)
	SignInWithPassword(ctx context.Context, email, password string) (*TokenGrant, error)
	RefreshSession(ctx context.Context, refreshToken string) (*TokenGrant, error)
	GetUser(ctx context.Context, accessToken string) (*AuthUser, error)
	UpdateUser(ctx context.Context, accessToken string, update ProfileUpdate) (*AuthUser, error)
	SignOut(ctx context.Context, accessToken string) error
	AdminCreateUser(ctx context.Context, input AdminCreateUserInput) (*AuthUser, error)
}

// AgentCredential is the decrypted credential record for a shadow agent
// identity.
type AgentCredential struct {
	UserID      string
	AgentUserID string
	AgentEmail  string
	Password    string
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// CredentialStore persists agent credentials with the password
// encrypted at rest. Get returns [ErrCredentialsNotFound] when no row
// exists for the user, distinct from transport failures.
type CredentialStore interface {
	Create(ctx context.Context, cred AgentCredential) error
	Get(ctx context.Context, userID string) (*AgentCredential, error)
	TouchLastUsed(ctx context.Context, userID string) error
}

// AgentSession is returned by [Engine.ResolveAgentSession]. Tokens are
// scoped to the shadow agent identity, not the human user.
type AgentSession struct {
	UserID       string
	AgentUserID  string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// RefreshOutcome reports how an agent session was re-established.
// Reauthenticated is true when the refresh grant failed and the engine
// fell back to a full password sign-in.
type RefreshOutcome struct {
	Session         *AgentSession
	Reauthenticated bool
}

// HumanSession is returned by the human login and refresh operations.
type HumanSession struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}
