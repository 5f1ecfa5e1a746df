package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const minPasswordBytes = 16

// NewAgentPassword returns a URL-safe random secret of n source bytes.
// The encoded form is what gets stored (encrypted) and used for
// password grants.
func NewAgentPassword(n int) (string, error) {
	if n < minPasswordBytes {
		return "", errors.New("agent password length too short")
	}

	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate agent password: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// AgentEmail derives the deterministic shadow identity address for a
// human user. The mapping must stay stable: credentials rows reference
// it and re-provisioning depends on hitting the same address.
func AgentEmail(userID, domain string) string {
	return fmt.Sprintf("agent_%s@%s", userID, domain)
}
