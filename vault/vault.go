// Package vault encrypts agent passwords for at-rest storage using
// AES-256-GCM under a process-wide key.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrKeyMissing is an exported constant or variable used by the ideas engine.
var ErrKeyMissing = errors.New("encryption key missing")

// ErrKeyInvalid is an exported constant or variable used by the ideas engine.
var ErrKeyInvalid = errors.New("encryption key must be 32 bytes base64 encoded")

// ErrInvalidCiphertext is an exported constant or variable used by the ideas engine.
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

const keySize = 32

// Vault performs authenticated encryption of short secrets. Construct
// once at startup and inject; the zero value is not usable.
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a base64 standard-encoded 32-byte key.
func New(keyB64 string) (*Vault, error) {
	if keyB64 == "" {
		return nil, ErrKeyMissing
	}

	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyInvalid, err)
	}
	if len(key) != keySize {
		return nil, ErrKeyInvalid
	}

	return newFromKey(key)
}

func newFromKey(key []byte) (*Vault, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce. The nonce is
// prepended to the ciphertext and the whole blob is base64 encoded.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if v == nil || v.aead == nil {
		return "", ErrKeyMissing
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Corrupt, truncated, or foreign input
// returns [ErrInvalidCiphertext]; it never panics.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	if v == nil || v.aead == nil {
		return "", ErrKeyMissing
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	if len(raw) < v.aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrInvalidCiphertext)
	}

	nonce, sealed := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	return string(plaintext), nil
}

// Rotate re-encrypts a ciphertext produced under oldKeyB64 so that it
// decrypts under newKeyB64. Used during key rotation migrations.
func Rotate(ciphertext, oldKeyB64, newKeyB64 string) (string, error) {
	oldVault, err := New(oldKeyB64)
	if err != nil {
		return "", fmt.Errorf("old key: %w", err)
	}

	newVault, err := New(newKeyB64)
	if err != nil {
		return "", fmt.Errorf("new key: %w", err)
	}

	plaintext, err := oldVault.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}

	return newVault.Encrypt(plaintext)
}
