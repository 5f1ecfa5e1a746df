package session

import "time"

// Agent holds the cached token bundle for one shadow agent identity.
type Agent struct {
	AgentUserID  string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Fresh reports whether the access token remains valid for at least
// margin more. Entries that fail this check must be refreshed or
// re-authenticated before use.
func (a Agent) Fresh(margin time.Duration) bool {
	if a.AccessToken == "" {
		return false
	}
	return time.Now().Before(a.ExpiresAt.Add(-margin))
}
