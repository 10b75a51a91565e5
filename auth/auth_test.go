// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	id, err := GenerateID(4)
	if err != nil {
		t.Fatalf("GenerateID failed: %v", err)
	}
	if len(id) != 8 {
		t.Errorf("Expected 8 hex characters, got %d: %q", len(id), id)
	}

	// IDs should be unique
	other, err := GenerateID(4)
	if err != nil {
		t.Fatalf("GenerateID failed: %v", err)
	}
	if id == other {
		t.Error("Two generated IDs collided")
	}
}

func TestGenerateJoinCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code, err := GenerateJoinCode()
		if err != nil {
			t.Fatalf("GenerateJoinCode failed: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("Expected %d characters, got %q", CodeLength, code)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("Code %q contains character outside alphabet", code)
			}
		}
		// Ambiguous characters must never appear
		for _, bad := range "01OIL" {
			if strings.ContainsRune(code, bad) {
				t.Fatalf("Code %q contains ambiguous character %q", code, bad)
			}
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("Suspiciously many collisions: %d unique out of 100", len(seen))
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abc234", "ABC234"},
		{" ABC234 ", "ABC234"},
		{"AbC234", "ABC234"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCode(tt.input); got != tt.expected {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGenerateMagicToken(t *testing.T) {
	token := GenerateMagicToken()
	if len(token) != 36 {
		t.Errorf("Expected UUID format (36 chars), got %d: %q", len(token), token)
	}
	if token == GenerateMagicToken() {
		t.Error("Two magic tokens collided")
	}
}

func TestPickAvatar(t *testing.T) {
	palette := []string{"🔥", "⚡", "🌟"}
	avatar, err := PickAvatar(palette)
	if err != nil {
		t.Fatalf("PickAvatar failed: %v", err)
	}
	found := false
	for _, a := range palette {
		if a == avatar {
			found = true
		}
	}
	if !found {
		t.Errorf("Avatar %q not in palette", avatar)
	}

	if _, err := PickAvatar(nil); err == nil {
		t.Error("Expected error for empty palette")
	}
}
