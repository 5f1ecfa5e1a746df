package supabase

import "time"

// User is the GoTrue user record.
type User struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Role         string            `json:"role,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	LastSignInAt *time.Time        `json:"last_sign_in_at,omitempty"`
	UserMetadata map[string]string `json:"user_metadata,omitempty"`
}

// Session is the token grant returned by signup, password, and refresh
// flows. ExpiresIn is in seconds.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}
