package vault

import (
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/restohub/backend/internal/domain/vault"
)

const keySize = 32

// seal encrypts a credential set with nacl/secretbox. The random nonce is
// prepended to the ciphertext so each blob is self-contained.
func seal(key *[keySize]byte, creds vault.Credentials) ([]byte, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// open decrypts a blob produced by seal. A failure means the key is wrong
// or the blob was tampered with; either way the vault cannot serve it.
func open(key *[keySize]byte, blob []byte) (vault.Credentials, error) {
	if len(blob) < 24 {
		return nil, fmt.Errorf("%w: ciphertext too short", vault.ErrSealed)
	}

	var nonce [24]byte
	copy(nonce[:], blob[:24])

	plaintext, ok := secretbox.Open(nil, blob[24:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("%w: decryption failed", vault.ErrSealed)
	}

	var creds vault.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}

// loadKey validates raw key material and copies it into a fixed-size array
func loadKey(raw []byte) (*[keySize]byte, error) {
	if len(raw) != keySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", keySize, len(raw))
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// ephemeralKey generates a random key that lives only as long as the process
func ephemeralKey() (*[keySize]byte, error) {
	var key [keySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate vault key: %w", err)
	}
	return &key, nil
}
