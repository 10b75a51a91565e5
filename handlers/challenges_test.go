// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/friend-challenge/server/models"
	"github.com/friend-challenge/server/version"
)

func newChallengeHandler(conn *sql.DB) *ChallengeHandler {
	return NewChallengeHandler(conn, getTestConfig(), version.NewCounter(conn))
}

func doAddChallenge(handler *ChallengeHandler, code, token string, body models.AddChallengeRequest) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/groups/"+code+"/challenges", bytes.NewReader(data))
	req.SetPathValue("code", code)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Participant-Token", token)
	}
	w := httptest.NewRecorder()
	handler.AddChallenge(w, req)
	return w
}

func doVote(handler *ChallengeHandler, challengeID, token string, add bool) *httptest.ResponseRecorder {
	method, fn := "POST", handler.Vote
	if !add {
		method, fn = "DELETE", handler.RemoveVote
	}
	req := httptest.NewRequest(method, "/challenges/"+challengeID+"/vote", nil)
	req.SetPathValue("id", challengeID)
	req.Header.Set("X-Participant-Token", token)
	w := httptest.NewRecorder()
	fn(w, req)
	return w
}

func TestAddChallenge(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := newChallengeHandler(conn)
	groupID, code, hostID, hostToken := createTestGroup(t, conn, models.PhaseSuggesting, 3)
	bobID, bobToken := addTestParticipant(t, conn, groupID, "Bob")

	// Another room entirely, to prove membership is enforced.
	_, _, _, strangerToken := createTestGroup(t, conn, models.PhaseSuggesting, 3)

	tests := []struct {
		name           string
		token          string
		body           models.AddChallengeRequest
		expectedStatus int
		expectedKind   string
	}{
		{
			name:           "valid suggestion",
			token:          hostToken,
			body:           models.AddChallengeRequest{Text: "Run a 10k", ForParticipantID: bobID},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "no token",
			token:          "",
			body:           models.AddChallengeRequest{Text: "x", ForParticipantID: bobID},
			expectedStatus: http.StatusUnauthorized,
			expectedKind:   models.KindNotAuthenticated,
		},
		{
			name:           "missing text",
			token:          hostToken,
			body:           models.AddChallengeRequest{ForParticipantID: bobID},
			expectedStatus: http.StatusBadRequest,
			expectedKind:   models.KindBadRequest,
		},
		{
			name:           "for yourself",
			token:          bobToken,
			body:           models.AddChallengeRequest{Text: "Easy one", ForParticipantID: bobID},
			expectedStatus: http.StatusForbidden,
			expectedKind:   models.KindForbidden,
		},
		{
			name:           "target not in room",
			token:          hostToken,
			body:           models.AddChallengeRequest{Text: "x", ForParticipantID: "not-a-member"},
			expectedStatus: http.StatusNotFound,
			expectedKind:   models.KindNotFound,
		},
		{
			name:           "caller from another room",
			token:          strangerToken,
			body:           models.AddChallengeRequest{Text: "x", ForParticipantID: bobID},
			expectedStatus: http.StatusForbidden,
			expectedKind:   models.KindForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doAddChallenge(handler, code, tt.token, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedKind != "" {
				var resp models.ErrorResponse
				json.Unmarshal(w.Body.Bytes(), &resp)
				if resp.Error != tt.expectedKind {
					t.Errorf("Expected kind %q, got %q", tt.expectedKind, resp.Error)
				}
			}
		})
	}

	// The one successful suggestion above attributed correctly and
	// bumped the version exactly once.
	var suggestedBy string
	err := conn.QueryRow(`SELECT suggested_by_id FROM challenges WHERE group_id = $1`, groupID).Scan(&suggestedBy)
	if err != nil {
		t.Fatalf("Failed to query challenge: %v", err)
	}
	if suggestedBy != hostID {
		t.Errorf("Suggester must be the authenticated caller, got %q", suggestedBy)
	}
	if v := groupVersion(t, conn, code); v != 2 {
		t.Errorf("Expected version 2, got %d", v)
	}
}

func TestAddChallengeWrongPhase(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := newChallengeHandler(conn)

	for _, phase := range []string{models.PhaseGathering, models.PhaseVoting, models.PhaseFinalized, models.PhaseTracking} {
		groupID, code, _, hostToken := createTestGroup(t, conn, phase, 3)
		bobID, _ := addTestParticipant(t, conn, groupID, "Bob")

		w := doAddChallenge(handler, code, hostToken, models.AddChallengeRequest{Text: "x", ForParticipantID: bobID})
		if w.Code != http.StatusConflict {
			t.Errorf("Phase %s: expected 409, got %d", phase, w.Code)
		}
		var resp models.ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Error != models.KindInvalidState {
			t.Errorf("Phase %s: expected invalid_state, got %q", phase, resp.Error)
		}
	}
}

func TestDeleteChallenge(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := newChallengeHandler(conn)
	groupID, code, hostID, hostToken := createTestGroup(t, conn, models.PhaseSuggesting, 3)
	bobID, bobToken := addTestParticipant(t, conn, groupID, "Bob")
	challengeID := addTestChallenge(t, conn, groupID, "Run a 10k", bobID, hostID)

	del := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("DELETE", "/challenges/"+challengeID, nil)
		req.SetPathValue("id", challengeID)
		req.Header.Set("X-Participant-Token", token)
		w := httptest.NewRecorder()
		handler.DeleteChallenge(w, req)
		return w
	}

	// Bob is the target, not the suggester.
	w := del(bobToken)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-creator, got %d", w.Code)
	}
	var errResp models.ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &errResp)
	if errResp.Message != "Only the creator can delete this challenge" {
		t.Errorf("Unexpected message: %q", errResp.Message)
	}

	w = del(hostToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Delete failed: %d. Body: %s", w.Code, w.Body.String())
	}
	var resp models.DeleteChallengeResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Success {
		t.Error("Expected success")
	}

	var count int
	conn.QueryRow(`SELECT COUNT(*) FROM challenges WHERE id = $1`, challengeID).Scan(&count)
	if count != 0 {
		t.Error("Challenge row still present")
	}
	if v := groupVersion(t, conn, code); v != 2 {
		t.Errorf("Expected version 2 after delete, got %d", v)
	}

	// Deleting again: gone.
	if w := del(hostToken); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for deleted challenge, got %d", w.Code)
	}
}

func TestVoteAndUnvote(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := newChallengeHandler(conn)
	groupID, code, hostID, hostToken := createTestGroup(t, conn, models.PhaseSuggesting, 3)
	bobID, bobToken := addTestParticipant(t, conn, groupID, "Bob")
	challengeID := addTestChallenge(t, conn, groupID, "Run a 10k", bobID, hostID)

	// First vote: recorded, bumps.
	w := doVote(handler, challengeID, hostToken, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Vote failed: %d. Body: %s", w.Code, w.Body.String())
	}
	var resp models.VoteResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Votes) != 1 || resp.Votes[0] != hostID {
		t.Errorf("Expected host's vote, got %v", resp.Votes)
	}
	if v := groupVersion(t, conn, code); v != 2 {
		t.Errorf("Expected version 2 after first vote, got %d", v)
	}

	// Repeat vote: idempotent, no bump.
	w = doVote(handler, challengeID, hostToken, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Repeat vote failed: %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Votes) != 1 {
		t.Errorf("Repeat vote duplicated: %v", resp.Votes)
	}
	if v := groupVersion(t, conn, code); v != 2 {
		t.Errorf("Repeat vote bumped version to %d", v)
	}

	// Second voter.
	w = doVote(handler, challengeID, bobToken, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Bob's vote failed: %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Votes) != 2 {
		t.Errorf("Expected 2 votes, got %v", resp.Votes)
	}
	if v := groupVersion(t, conn, code); v != 3 {
		t.Errorf("Expected version 3, got %d", v)
	}

	// Unvote: removed, bumps.
	w = doVote(handler, challengeID, hostToken, false)
	if w.Code != http.StatusOK {
		t.Fatalf("Unvote failed: %d", w.Code)
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Votes) != 1 || resp.Votes[0] != bobID {
		t.Errorf("Expected only Bob's vote left, got %v", resp.Votes)
	}
	if v := groupVersion(t, conn, code); v != 4 {
		t.Errorf("Expected version 4 after unvote, got %d", v)
	}

	// Unvoting an absent vote: no-op, no bump.
	w = doVote(handler, challengeID, hostToken, false)
	if w.Code != http.StatusOK {
		t.Fatalf("Absent unvote failed: %d", w.Code)
	}
	if v := groupVersion(t, conn, code); v != 4 {
		t.Errorf("Absent unvote bumped version to %d", v)
	}
}

func TestVoteFromAnotherRoom(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := newChallengeHandler(conn)
	groupID, _, hostID, _ := createTestGroup(t, conn, models.PhaseVoting, 3)
	bobID, _ := addTestParticipant(t, conn, groupID, "Bob")
	challengeID := addTestChallenge(t, conn, groupID, "Run a 10k", bobID, hostID)

	_, _, _, strangerToken := createTestGroup(t, conn, models.PhaseVoting, 3)

	w := doVote(handler, challengeID, strangerToken, true)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for cross-room vote, got %d", w.Code)
	}
}

func TestToggleComplete(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := newChallengeHandler(conn)
	groupID, code, hostID, hostToken := createTestGroup(t, conn, models.PhaseFinalized, 3)
	bobID, bobToken := addTestParticipant(t, conn, groupID, "Bob")
	challengeID := addTestChallenge(t, conn, groupID, "Run a 10k", bobID, hostID)

	toggle := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/challenges/"+challengeID+"/toggle", nil)
		req.SetPathValue("id", challengeID)
		req.Header.Set("X-Participant-Token", token)
		w := httptest.NewRecorder()
		handler.ToggleComplete(w, req)
		return w
	}

	// Only Bob (the assignee) can toggle, not the suggester.
	if w := toggle(hostToken); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for non-assignee, got %d", w.Code)
	}

	w := toggle(bobToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Toggle failed: %d. Body: %s", w.Code, w.Body.String())
	}
	var resp models.ToggleCompleteResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.IsCompleted {
		t.Error("Expected completed after first toggle")
	}
	if v := groupVersion(t, conn, code); v != 2 {
		t.Errorf("Expected version 2, got %d", v)
	}

	// Toggling back works too.
	w = toggle(bobToken)
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.IsCompleted {
		t.Error("Expected uncompleted after second toggle")
	}
	if v := groupVersion(t, conn, code); v != 3 {
		t.Errorf("Expected version 3, got %d", v)
	}
}

func TestToggleCompleteWrongPhase(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	handler := newChallengeHandler(conn)

	for _, phase := range []string{models.PhaseGathering, models.PhaseSuggesting, models.PhaseVoting} {
		groupID, _, hostID, _ := createTestGroup(t, conn, phase, 3)
		bobID, bobToken := addTestParticipant(t, conn, groupID, "Bob")
		challengeID := addTestChallenge(t, conn, groupID, "Run a 10k", bobID, hostID)

		req := httptest.NewRequest("POST", "/challenges/"+challengeID+"/toggle", nil)
		req.SetPathValue("id", challengeID)
		req.Header.Set("X-Participant-Token", bobToken)
		w := httptest.NewRecorder()
		handler.ToggleComplete(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("Phase %s: expected 409, got %d", phase, w.Code)
		}
	}
}
