package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Cipher encrypts and decrypts sensitive inventory text fields (names,
// categories, tag names, size titles) stored at rest in the database.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives an AES-256-GCM cipher from the configured secret.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret not configured")
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt returns the base64-encoded ciphertext of plain.
func (c *Cipher) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. On any failure the input is returned unchanged
// so a single corrupt field does not abort an entire document build.
func (c *Cipher) Decrypt(encoded string) string {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return encoded
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return encoded
	}

	plain, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return encoded
	}
	return string(plain)
}

// DecryptAll decrypts each value in place-order, tolerating per-field failures.
func (c *Cipher) DecryptAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = c.Decrypt(v)
	}
	return out
}
