// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Room lifecycle phases, in order. Phase only ever moves forward one
// step at a time and is clamped at PhaseTracking.
const (
	PhaseGathering  = "gathering"
	PhaseSuggesting = "suggesting"
	PhaseVoting     = "voting"
	PhaseFinalized  = "finalized"
	PhaseTracking   = "tracking"
)

// Phases is the total order over lifecycle phases.
var Phases = []string{PhaseGathering, PhaseSuggesting, PhaseVoting, PhaseFinalized, PhaseTracking}

// NextPhase returns the phase after p, clamped at the terminal phase.
// Unknown phases map to the first phase.
func NextPhase(p string) string {
	for i, ph := range Phases {
		if ph == p {
			if i == len(Phases)-1 {
				return ph
			}
			return Phases[i+1]
		}
	}
	return Phases[0]
}

// Error kinds surfaced in ErrorResponse.Error. Clients branch on these,
// not on transport codes.
const (
	KindNotAuthenticated = "not_authenticated"
	KindNotFound         = "not_found"
	KindForbidden        = "forbidden"
	KindInvalidState     = "invalid_state"
	KindBadRequest       = "bad_request"
	KindStoreError       = "store_error"
)

// Avatars is the fixed palette a participant's symbol is drawn from at
// creation time. Not reassignable afterwards.
var Avatars = []string{"🔥", "⚡", "🌟", "🎯", "🚀", "💎", "🎪", "🌈", "🦊", "🐉", "🎸", "🎭"}

// Request types

type CreateGroupRequest struct {
	Name                string `json:"name"`
	HostName            string `json:"hostName"`
	ChallengesPerPerson int    `json:"challengesPerPerson"`
	TurnstileToken      string `json:"turnstileToken"`
}

type JoinGroupRequest struct {
	Name           string `json:"name"`
	ExistingToken  string `json:"existingToken,omitempty"`
	TurnstileToken string `json:"turnstileToken,omitempty"`
}

// AddChallengeRequest carries no suggester field: the suggester is the
// authenticated caller, taken from the X-Participant-Token header.
type AddChallengeRequest struct {
	Text             string `json:"text"`
	ForParticipantID string `json:"forParticipantId"`
}

type SetDeadlineRequest struct {
	Deadline time.Time `json:"deadline"`
}

// Response types

type CreateGroupResponse struct {
	ID                  string        `json:"id"`
	Code                string        `json:"code"`
	Name                string        `json:"name"`
	Phase               string        `json:"phase"`
	ChallengesPerPerson int           `json:"challengesPerPerson"`
	Version             int64         `json:"version"`
	HostID              string        `json:"hostId"`
	Token               string        `json:"token"`
	Participants        []Participant `json:"participants"`
	Challenges          []Challenge   `json:"challenges"`
}

type JoinGroupResponse struct {
	ParticipantID string `json:"participantId"`
	Token         string `json:"token"`
	Name          string `json:"name,omitempty"`
	Rejoined      bool   `json:"rejoined"`
}

type VersionResponse struct {
	Version int64 `json:"version"`
}

type AdvancePhaseResponse struct {
	Phase   string `json:"phase"`
	Version int64  `json:"version"`
}

type SetDeadlineResponse struct {
	Deadline time.Time `json:"deadline"`
}

type VoteResponse struct {
	Votes []string `json:"votes"`
}

type ToggleCompleteResponse struct {
	IsCompleted bool `json:"isCompleted"`
}

type DeleteChallengeResponse struct {
	Success bool `json:"success"`
}

// ParticipantToken pairs a participant with their magic token. Host
// only: used to re-send lost recovery links.
type ParticipantToken struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Token  string `json:"token"`
}

type TokensResponse struct {
	Participants []ParticipantToken `json:"participants"`
}

// ResolveTokenResponse identifies the participant owning a magic token.
type ResolveTokenResponse struct {
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar"`
	IsHost        bool   `json:"isHost"`
	RoomCode      string `json:"roomCode"`
	Valid         bool   `json:"valid"`
}

// Domain types

type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	IsHost bool   `json:"isHost"`
}

type Challenge struct {
	ID                       string   `json:"id"`
	Text                     string   `json:"text"`
	ForParticipantID         string   `json:"forParticipantId"`
	SuggestedByParticipantID string   `json:"suggestedByParticipantId"`
	Votes                    []string `json:"votes"`
	IsFinalized              bool     `json:"isFinalized"`
	IsCompleted              bool     `json:"isCompleted"`
}

// GroupSnapshot is the full-state read model: room metadata plus every
// participant and challenge, tagged with the version it represents.
type GroupSnapshot struct {
	ID                  string        `json:"id"`
	Code                string        `json:"code"`
	Name                string        `json:"name"`
	Phase               string        `json:"phase"`
	ChallengesPerPerson int           `json:"challengesPerPerson"`
	Deadline            *time.Time    `json:"deadline,omitempty"`
	DeadlineIn          string        `json:"deadlineIn,omitempty"`
	Version             int64         `json:"version"`
	CreatedAt           time.Time     `json:"createdAt"`
	Participants        []Participant `json:"participants"`
	Challenges          []Challenge   `json:"challenges"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
