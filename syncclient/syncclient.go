// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/friend-challenge/server/fieldcrypto"
	"github.com/friend-challenge/server/models"
)

// DefaultInterval is how often the poller checks the version endpoint.
const DefaultInterval = 3 * time.Second

// APIError is a non-2xx server reply, decoded from the error body.
// Callers branch on Kind, not on Status.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Kind, e.Message)
}

// Client keeps one device in sync with one room. It polls the cheap
// version endpoint and fetches the full snapshot only when the version
// moved past the one it holds, so an idle room costs a single indexed
// row read per poll.
type Client struct {
	baseURL  string
	http     *http.Client
	clock    clockwork.Clock
	interval time.Duration

	// Visible reports whether the UI is in the foreground. Ticks while
	// hidden are skipped entirely; nil means always visible.
	Visible func() bool

	// OnSnapshot receives each applied snapshot.
	OnSnapshot func(models.GroupSnapshot)

	// OnError receives poll and fetch failures. The poller keeps
	// running; transient errors resolve themselves on a later tick.
	OnError func(error)

	mu           sync.Mutex
	code         string
	token        string
	roomKey      string
	localVersion int64
	stop         chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithClock swaps the wall clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRoomKey sets the shared room key. With a key held, challenge
// texts and display names are encrypted before they leave the client
// and decrypted on fetch; the server only ever stores ciphertext.
func WithRoomKey(keyBase64 string) Option {
	return func(c *Client) { c.roomKey = keyBase64 }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		clock:    clockwork.NewRealClock(),
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the participant's magic token. Mutations send it in
// the X-Participant-Token header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Version returns the version of the last applied snapshot.
func (c *Client) Version() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localVersion
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// CreateGroup creates a room and installs the returned host token, so
// follow-up mutations are authenticated without further setup.
func (c *Client) CreateGroup(ctx context.Context, req models.CreateGroupRequest) (*models.CreateGroupResponse, error) {
	if c.roomKey != "" {
		var err error
		if req.Name, err = fieldcrypto.Encrypt(req.Name, c.roomKey); err != nil {
			return nil, err
		}
		if req.HostName, err = fieldcrypto.Encrypt(req.HostName, c.roomKey); err != nil {
			return nil, err
		}
	}

	var resp models.CreateGroupResponse
	if err := c.do(ctx, http.MethodPost, "/groups", req, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.localVersion = resp.Version
	c.mu.Unlock()
	return &resp, nil
}

// Join joins a room, or rejoins it when req.ExistingToken is set. The
// returned token is installed either way.
func (c *Client) Join(ctx context.Context, code string, req models.JoinGroupRequest) (*models.JoinGroupResponse, error) {
	if c.roomKey != "" && req.Name != "" {
		var err error
		if req.Name, err = fieldcrypto.Encrypt(req.Name, c.roomKey); err != nil {
			return nil, err
		}
	}

	var resp models.JoinGroupResponse
	if err := c.do(ctx, http.MethodPost, "/groups/"+code+"/join", req, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	c.refresh(ctx)
	return &resp, nil
}

// FetchGroup retrieves and decrypts the full snapshot without touching
// the poller's local version.
func (c *Client) FetchGroup(ctx context.Context, code string) (*models.GroupSnapshot, error) {
	var snap models.GroupSnapshot
	if err := c.do(ctx, http.MethodGet, "/groups/"+code, nil, &snap); err != nil {
		return nil, err
	}
	if err := c.decryptSnapshot(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// FetchVersion retrieves the room's current version. Unknown rooms
// report 0.
func (c *Client) FetchVersion(ctx context.Context, code string) (int64, error) {
	var resp models.VersionResponse
	if err := c.do(ctx, http.MethodGet, "/groups/"+code+"/version", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// AddChallenge suggests a challenge for another participant.
func (c *Client) AddChallenge(ctx context.Context, code string, req models.AddChallengeRequest) (*models.Challenge, error) {
	if c.roomKey != "" {
		var err error
		if req.Text, err = fieldcrypto.Encrypt(req.Text, c.roomKey); err != nil {
			return nil, err
		}
	}

	var resp models.Challenge
	if err := c.do(ctx, http.MethodPost, "/groups/"+code+"/challenges", req, &resp); err != nil {
		return nil, err
	}
	c.refresh(ctx)
	return &resp, nil
}

// DeleteChallenge removes a challenge the caller suggested.
func (c *Client) DeleteChallenge(ctx context.Context, challengeID string) error {
	err := c.do(ctx, http.MethodDelete, "/challenges/"+challengeID, nil, nil)
	if err != nil {
		return err
	}
	c.refresh(ctx)
	return nil
}

// Vote records the caller's vote on a challenge. Idempotent.
func (c *Client) Vote(ctx context.Context, challengeID string) (*models.VoteResponse, error) {
	var resp models.VoteResponse
	if err := c.do(ctx, http.MethodPost, "/challenges/"+challengeID+"/vote", nil, &resp); err != nil {
		return nil, err
	}
	c.refresh(ctx)
	return &resp, nil
}

// RemoveVote retracts the caller's vote. Idempotent.
func (c *Client) RemoveVote(ctx context.Context, challengeID string) (*models.VoteResponse, error) {
	var resp models.VoteResponse
	if err := c.do(ctx, http.MethodDelete, "/challenges/"+challengeID+"/vote", nil, &resp); err != nil {
		return nil, err
	}
	c.refresh(ctx)
	return &resp, nil
}

// ToggleComplete flips the caller's completion state on a finalized
// challenge assigned to them.
func (c *Client) ToggleComplete(ctx context.Context, challengeID string) (*models.ToggleCompleteResponse, error) {
	var resp models.ToggleCompleteResponse
	if err := c.do(ctx, http.MethodPost, "/challenges/"+challengeID+"/toggle", nil, &resp); err != nil {
		return nil, err
	}
	c.refresh(ctx)
	return &resp, nil
}

// AdvancePhase moves the room one phase forward. Host only.
func (c *Client) AdvancePhase(ctx context.Context, code string) (*models.AdvancePhaseResponse, error) {
	var resp models.AdvancePhaseResponse
	if err := c.do(ctx, http.MethodPost, "/groups/"+code+"/advance", nil, &resp); err != nil {
		return nil, err
	}
	c.refresh(ctx)
	return &resp, nil
}

// SetDeadline sets the room deadline. Host only.
func (c *Client) SetDeadline(ctx context.Context, code string, deadline time.Time) (*models.SetDeadlineResponse, error) {
	var resp models.SetDeadlineResponse
	req := models.SetDeadlineRequest{Deadline: deadline}
	if err := c.do(ctx, http.MethodPost, "/groups/"+code+"/deadline", req, &resp); err != nil {
		return nil, err
	}
	c.refresh(ctx)
	return &resp, nil
}

// GetTokens lists every participant's magic token. Host only.
func (c *Client) GetTokens(ctx context.Context, code string) (*models.TokensResponse, error) {
	var resp models.TokensResponse
	if err := c.do(ctx, http.MethodGet, "/groups/"+code+"/tokens", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResolveToken resolves a magic link token to its participant and room.
func (c *Client) ResolveToken(ctx context.Context, token string) (*models.ResolveTokenResponse, error) {
	var resp models.ResolveTokenResponse
	if err := c.do(ctx, http.MethodGet, "/auth/"+token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("X-Participant-Token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			apiErr.Kind = body.Error
			apiErr.Message = body.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decryptSnapshot opens the encrypted fields in place. A snapshot that
// fails to decrypt is rejected whole rather than shown half-garbled.
func (c *Client) decryptSnapshot(snap *models.GroupSnapshot) error {
	if c.roomKey == "" {
		return nil
	}

	var err error
	if snap.Name, err = fieldcrypto.Decrypt(snap.Name, c.roomKey); err != nil {
		return err
	}
	for i := range snap.Participants {
		if snap.Participants[i].Name, err = fieldcrypto.Decrypt(snap.Participants[i].Name, c.roomKey); err != nil {
			return err
		}
	}
	for i := range snap.Challenges {
		if snap.Challenges[i].Text, err = fieldcrypto.Decrypt(snap.Challenges[i].Text, c.roomKey); err != nil {
			return err
		}
	}
	return nil
}
