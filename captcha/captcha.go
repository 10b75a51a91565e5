// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package captcha

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the Cloudflare Turnstile siteverify API.
const DefaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier checks a client-supplied CAPTCHA token. Bot checks gate
// room creation and first joins only; everything else is authenticated
// by participant tokens.
type Verifier interface {
	Verify(token, remoteIP string) (bool, error)
}

// Turnstile verifies tokens against the Cloudflare siteverify API.
type Turnstile struct {
	secret   string
	endpoint string
	client   *http.Client
}

// NewTurnstile creates a verifier with the given secret key.
func NewTurnstile(secret string) *Turnstile {
	return &Turnstile{
		secret:   secret,
		endpoint: DefaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTurnstileWithEndpoint is used by tests to point at a fake API.
func NewTurnstileWithEndpoint(secret, endpoint string) *Turnstile {
	t := NewTurnstile(secret)
	t.endpoint = endpoint
	return t
}

func (t *Turnstile) Verify(token, remoteIP string) (bool, error) {
	form := url.Values{
		"secret":   {t.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	resp, err := t.client.Post(t.endpoint, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("turnstile request failed: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("turnstile response invalid: %w", err)
	}

	return result.Success, nil
}

// Disabled accepts every token. Used when no secret is configured
// (local development, tests).
type Disabled struct{}

func (Disabled) Verify(string, string) (bool, error) { return true, nil }
