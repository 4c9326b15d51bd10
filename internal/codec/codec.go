// Package codec encrypts and decrypts channel payloads with AES-GCM.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

const keySize = 32

// Codec seals channel payloads as base64(nonce || ciphertext). It is
// stateless and safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
}

// New derives a 256-bit key from the shared secret (zero-padded or
// truncated to 32 bytes) and builds an AES-GCM codec around it.
func New(secret string) (*Codec, error) {
	key := make([]byte, keySize)
	copy(key, []byte(secret))

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Encrypt seals one plaintext payload under a fresh random nonce.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	ciphertext := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

// Decrypt opens a payload produced by Encrypt (or by a client holding the
// same shared secret).
func (c *Codec) Decrypt(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", fmt.Errorf("payload shorter than nonce")
	}
	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("open payload: %w", err)
	}
	return string(plaintext), nil
}
