package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	plaintext := "agent-password-secret-value"
	ciphertext, err := v.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ciphertext == plaintext {
		t.Fatal("ciphertext equals plaintext")
	}

	got, err := v.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if got != plaintext {
		t.Fatalf("round trip mismatch: got %q want %q", got, plaintext)
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	a, err := v.Encrypt("same input")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := v.Encrypt("same input")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if a == b {
		t.Fatal("nonce reuse: identical ciphertexts for identical plaintexts")
	}
}

func TestDecryptCorruptedCiphertext(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	ciphertext, err := v.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	raw[len(raw)-1] ^= 0x01
	corrupted := base64.StdEncoding.EncodeToString(raw)

	if _, err := v.Decrypt(corrupted); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestDecryptTruncatedCiphertext(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	short := base64.StdEncoding.EncodeToString([]byte("abc"))
	if _, err := v.Decrypt(short); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestDecryptGarbageInput(t *testing.T) {
	v, err := New(testKey(t))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	if _, err := v.Decrypt("not base64 at all!!!"); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	a, err := New(testKey(t))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	b, err := New(testKey(t))
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	ciphertext, err := a.Encrypt("secret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := b.Decrypt(ciphertext); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrKeyMissing) {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}

	short := base64.StdEncoding.EncodeToString([]byte("too-short"))
	if _, err := New(short); !errors.Is(err, ErrKeyInvalid) {
		t.Fatalf("expected ErrKeyInvalid, got %v", err)
	}

	if _, err := New(strings.Repeat("!", 44)); !errors.Is(err, ErrKeyInvalid) {
		t.Fatalf("expected ErrKeyInvalid, got %v", err)
	}
}

func TestRotate(t *testing.T) {
	oldKey := testKey(t)
	newKey := testKey(t)

	oldVault, err := New(oldKey)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	ciphertext, err := oldVault.Encrypt("rotate me")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	rotated, err := Rotate(ciphertext, oldKey, newKey)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}

	newVault, err := New(newKey)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	got, err := newVault.Decrypt(rotated)
	if err != nil {
		t.Fatalf("decrypt rotated: %v", err)
	}
	if got != "rotate me" {
		t.Fatalf("rotated value mismatch: got %q", got)
	}

	// The old key must no longer open the rotated blob.
	if _, err := oldVault.Decrypt(rotated); !errors.Is(err, ErrInvalidCiphertext) {
		t.Fatalf("expected ErrInvalidCiphertext under old key, got %v", err)
	}
}
