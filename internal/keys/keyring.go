// Package keys owns the symmetric encryption keys used for field-level
// encryption. Keys are addressed by key id so envelopes written under a
// rotated-out key remain decryptable.
package keys

import (
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	"sentra/pkg/platform/sentinel"
)

const keySize = 32 // AES-256

// Keyring holds symmetric keys by id plus the active key id used for new
// encryptions. Safe for concurrent use.
type Keyring struct {
	mu     sync.RWMutex
	keys   map[string][]byte
	active string
}

// New derives an initial key from the master secret and installs it as active.
// Each key id yields an independent key via HKDF, so rotation never requires
// re-deriving or re-distributing the master secret.
func New(masterSecret, activeKeyID string) (*Keyring, error) {
	if masterSecret == "" {
		return nil, fmt.Errorf("master secret is required")
	}
	if activeKeyID == "" {
		return nil, fmt.Errorf("active key id is required")
	}

	kr := &Keyring{keys: make(map[string][]byte)}
	if err := kr.derive(masterSecret, activeKeyID); err != nil {
		return nil, err
	}
	kr.active = activeKeyID
	return kr, nil
}

// Active returns the id and material of the key used for new encryptions.
func (kr *Keyring) Active() (string, []byte) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	return kr.active, kr.keys[kr.active]
}

// ActiveKeyID returns the id of the current encryption key.
func (kr *Keyring) ActiveKeyID() string {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	return kr.active
}

// Lookup returns the key material for a historical or current key id.
// Returns sentinel.ErrNotFound when the id is unknown.
func (kr *Keyring) Lookup(keyID string) ([]byte, error) {
	kr.mu.RLock()
	defer kr.mu.RUnlock()
	key, ok := kr.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("key %q: %w", keyID, sentinel.ErrNotFound)
	}
	return key, nil
}

// Rotate derives a key for newKeyID from the master secret and makes it the
// active key. Previously derived keys stay resolvable by id.
func (kr *Keyring) Rotate(masterSecret, newKeyID string) error {
	if newKeyID == "" {
		return fmt.Errorf("new key id is required")
	}
	kr.mu.Lock()
	defer kr.mu.Unlock()
	if _, exists := kr.keys[newKeyID]; !exists {
		key, err := deriveKey(masterSecret, newKeyID)
		if err != nil {
			return err
		}
		kr.keys[newKeyID] = key
	}
	kr.active = newKeyID
	return nil
}

func (kr *Keyring) derive(masterSecret, keyID string) error {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	key, err := deriveKey(masterSecret, keyID)
	if err != nil {
		return err
	}
	kr.keys[keyID] = key
	return nil
}

func deriveKey(masterSecret, keyID string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte("sentra/field-key/"+keyID))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key %q: %w", keyID, err)
	}
	return key, nil
}
