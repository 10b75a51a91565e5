// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// Join codes avoid 0/O and 1/I so they survive being read out loud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the length of a room join code.
const CodeLength = 6

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateJoinCode creates a short human-enterable room code.
// Uppercase, unambiguous alphabet, 6 characters.
func GenerateJoinCode() (string, error) {
	var sb strings.Builder
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate join code: %w", err)
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// NormalizeCode canonicalizes a user-entered join code: codes are
// case-insensitive and stored uppercase.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateMagicToken creates the unguessable recovery credential that
// re-identifies a participant from any device. 122 bits of entropy.
func GenerateMagicToken() string {
	return uuid.NewString()
}

// PickAvatar draws a symbol from the palette. The avatar is fixed at
// participant creation and never reassigned.
func PickAvatar(palette []string) (string, error) {
	if len(palette) == 0 {
		return "", fmt.Errorf("empty avatar palette")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(palette))))
	if err != nil {
		return "", fmt.Errorf("failed to pick avatar: %w", err)
	}
	return palette[n.Int64()], nil
}
