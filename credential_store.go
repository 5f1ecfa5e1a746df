package ideas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/StackRunner1/my-ideas/supabase"
	"github.com/StackRunner1/my-ideas/vault"
)

const credentialsTable = "agent_credentials"

type agentCredentialRow struct {
	UserID            string     `json:"user_id"`
	AgentUserID       string     `json:"agent_user_id"`
	AgentEmail        string     `json:"agent_email"`
	EncryptedPassword string     `json:"encrypted_password"`
	CreatedAt         time.Time  `json:"created_at,omitempty"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
}

// SupabaseCredentialStore persists agent credentials in the
// agent_credentials table through the service-role client, with the
// password sealed by the vault before it leaves the process.
type SupabaseCredentialStore struct {
	admin *supabase.Client
	vault *vault.Vault
}

// NewSupabaseCredentialStore describes the newsupabasecredentialstore operation and its observable behavior.
//
// NewSupabaseCredentialStore may return an error when input validation, dependency calls, or security checks fail.
// NewSupabaseCredentialStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewSupabaseCredentialStore(admin *supabase.Client, v *vault.Vault) *SupabaseCredentialStore {
	return &SupabaseCredentialStore{
		admin: admin,
		vault: v,
	}
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *SupabaseCredentialStore) Create(ctx context.Context, cred AgentCredential) error {
	sealed, err := s.vault.Encrypt(cred.Password)
	if err != nil {
		return fmt.Errorf("encrypt agent password: %w", err)
	}

	row := agentCredentialRow{
		UserID:            cred.UserID,
		AgentUserID:       cred.AgentUserID,
		AgentEmail:        cred.AgentEmail,
		EncryptedPassword: sealed,
	}

	if err := s.admin.From(credentialsTable).Insert(row).Execute(ctx, nil); err != nil {
		if supabase.IsConflict(err) {
			return fmt.Errorf("%w: %v", ErrAgentAlreadyProvisioned, err)
		}
		return fmt.Errorf("insert agent credential: %w", err)
	}
	return nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *SupabaseCredentialStore) Get(ctx context.Context, userID string) (*AgentCredential, error) {
	var rows []agentCredentialRow
	err := s.admin.From(credentialsTable).
		Select("*").
		Eq("user_id", userID).
		Limit(1).
		Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("fetch agent credential: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrCredentialsNotFound
	}

	row := rows[0]
	// A half-written row is as unusable as a missing one and must not
	// be mistaken for a corrupted ciphertext.
	if row.AgentUserID == "" || row.EncryptedPassword == "" {
		return nil, fmt.Errorf("%w: incomplete credential row", ErrCredentialsNotFound)
	}
	password, err := s.vault.Decrypt(row.EncryptedPassword)
	if err != nil {
		if errors.Is(err, vault.ErrInvalidCiphertext) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
		}
		return nil, fmt.Errorf("decrypt agent password: %w", err)
	}

	cred := &AgentCredential{
		UserID:      row.UserID,
		AgentUserID: row.AgentUserID,
		AgentEmail:  row.AgentEmail,
		Password:    password,
		CreatedAt:   row.CreatedAt,
	}
	if row.LastUsedAt != nil {
		cred.LastUsedAt = *row.LastUsedAt
	}
	return cred, nil
}

// TouchLastUsed describes the touchlastused operation and its observable behavior.
//
// TouchLastUsed may return an error when input validation, dependency calls, or security checks fail.
// TouchLastUsed does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *SupabaseCredentialStore) TouchLastUsed(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	body := map[string]any{"last_used_at": now.Format(time.RFC3339)}

	err := s.admin.From(credentialsTable).
		Update(body).
		Eq("user_id", userID).
		Execute(ctx, nil)
	if err != nil {
		return fmt.Errorf("touch agent credential: %w", err)
	}
	return nil
}
