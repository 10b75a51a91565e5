// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package fieldcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	keyLen = 32 // AES-256
	ivLen  = 12 // AES-GCM nonce
)

// ErrDecrypt is returned when a ciphertext does not authenticate under
// the supplied key: wrong key, truncated data, or tampering. Decryption
// never silently returns garbage.
var ErrDecrypt = errors.New("fieldcrypto: decryption failed")

// GenerateKey creates a new random room key, base64 encoded. The key
// is shared out-of-band (URL fragment) and never reaches the server.
func GenerateKey() (string, error) {
	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate room key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Encrypt seals plaintext with AES-256-GCM under the base64 room key.
// Wire format: base64(iv || ciphertext || tag), matching what the web
// client produces with WebCrypto.
func Encrypt(plaintext, keyBase64 string) (string, error) {
	gcm, err := newGCM(keyBase64)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	combined := append(iv, sealed...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// Decrypt opens a ciphertext produced by Encrypt. Returns ErrDecrypt
// if the key is wrong or the data has been modified.
func Decrypt(encryptedBase64, keyBase64 string) (string, error) {
	gcm, err := newGCM(keyBase64)
	if err != nil {
		return "", err
	}

	combined, err := base64.StdEncoding.DecodeString(encryptedBase64)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64", ErrDecrypt)
	}
	if len(combined) < ivLen {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	iv, sealed := combined[:ivLen], combined[ivLen:]
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

func newGCM(keyBase64 string) (cipher.AEAD, error) {
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("invalid room key: %w", err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("invalid room key: need %d bytes, got %d", keyLen, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid room key: %w", err)
	}
	return cipher.NewGCM(block)
}
