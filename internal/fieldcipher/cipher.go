// Package fieldcipher encrypts and decrypts individual sensitive fields,
// producing self-describing envelopes. It is side-effect free: callers are
// responsible for auditing the surrounding operation.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"sentra/internal/keys"
	"sentra/pkg/platform/sentinel"
)

// Distinct error kinds so the gateway can record a DECRYPTION_FAILURE outcome
// separately from a policy denial.
var (
	// ErrKeyNotFound means the envelope references a key id the keyring
	// cannot resolve.
	ErrKeyNotFound = errors.New("fieldcipher: key not found")

	// ErrIntegrity means the ciphertext or its metadata was tampered with.
	// No partial plaintext is ever returned on this path.
	ErrIntegrity = errors.New("fieldcipher: integrity check failed")
)

// Cipher wraps the keyring with AES-256-GCM envelope encryption.
type Cipher struct {
	keyring *keys.Keyring
}

// New creates a Cipher over the given keyring.
func New(keyring *keys.Keyring) (*Cipher, error) {
	if keyring == nil {
		return nil, fmt.Errorf("keyring is required")
	}
	return &Cipher{keyring: keyring}, nil
}

// Encrypt seals plaintext under the active key with a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) (Envelope, error) {
	keyID, _ := c.keyring.Active()
	return c.EncryptWithKey(plaintext, keyID)
}

// EncryptWithKey seals plaintext under a specific key id.
func (c *Cipher) EncryptWithKey(plaintext []byte, keyID string) (Envelope, error) {
	key, err := c.keyring.Lookup(keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Envelope{}, fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
		}
		return Envelope{}, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return Envelope{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("generate nonce: %w", err)
	}

	return Envelope{
		Ciphertext: aead.Seal(nil, nonce, plaintext, envelopeAAD(keyID)),
		KeyID:      keyID,
		Algorithm:  AlgorithmAESGCM,
		Nonce:      nonce,
	}, nil
}

// Decrypt opens an envelope, locating the historical key by its key id.
// A GCM authentication failure surfaces as ErrIntegrity and is not
// recoverable locally.
func (c *Cipher) Decrypt(env Envelope) ([]byte, error) {
	if env.Algorithm != AlgorithmAESGCM {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrIntegrity, env.Algorithm)
	}

	key, err := c.keyring.Lookup(env.KeyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, env.KeyID)
		}
		return nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length %d", ErrIntegrity, len(env.Nonce))
	}

	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, envelopeAAD(env.KeyID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return plaintext, nil
}

// envelopeAAD binds the key id into the authentication tag so an envelope
// rewritten to point at a different key fails integrity instead of decrypting
// under the wrong key.
func envelopeAAD(keyID string) []byte {
	return []byte("sentra:" + keyID)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}
