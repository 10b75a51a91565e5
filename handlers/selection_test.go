// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/friend-challenge/server/models"
)

func addVote(t *testing.T, handler *ChallengeHandler, challengeID, token string) {
	t.Helper()
	w := doVote(handler, challengeID, token, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Vote on %s failed: %d. Body: %s", challengeID, w.Code, w.Body.String())
	}
}

func finalizedSet(t *testing.T, handler *GroupHandler, code string) map[string]bool {
	t.Helper()
	req := httptest.NewRequest("GET", "/groups/"+code, nil)
	req.SetPathValue("code", code)
	w := httptest.NewRecorder()
	handler.GetGroup(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GetGroup failed: %d", w.Code)
	}
	var snap models.GroupSnapshot
	json.NewDecoder(w.Body).Decode(&snap)

	set := map[string]bool{}
	for _, ch := range snap.Challenges {
		if ch.IsFinalized {
			set[ch.ID] = true
		}
	}
	return set
}

func TestFinalizeSelectionPicksTopVoted(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	groupHandler := newGroupHandler(conn)
	challengeHandler := newChallengeHandler(conn)

	// Room in voting with 2 challenges per person.
	groupID, code, hostID, hostToken := createTestGroup(t, conn, models.PhaseVoting, 2)
	bobID, bobToken := addTestParticipant(t, conn, groupID, "Bob")
	carolID, carolToken := addTestParticipant(t, conn, groupID, "Carol")

	// Four suggestions for Bob with 3, 2, 1, 0 votes.
	run := addTestChallenge(t, conn, groupID, "Run a 10k", bobID, hostID)
	book := addTestChallenge(t, conn, groupID, "Read 12 books", bobID, hostID)
	swim := addTestChallenge(t, conn, groupID, "Swim in winter", bobID, carolID)
	sing := addTestChallenge(t, conn, groupID, "Karaoke night", bobID, carolID)

	addVote(t, challengeHandler, run, hostToken)
	addVote(t, challengeHandler, run, bobToken)
	addVote(t, challengeHandler, run, carolToken)
	addVote(t, challengeHandler, book, hostToken)
	addVote(t, challengeHandler, book, bobToken)
	addVote(t, challengeHandler, swim, carolToken)

	// One suggestion for Carol, unvoted: still selected, fewer
	// candidates than the per-person limit.
	juggle := addTestChallenge(t, conn, groupID, "Learn to juggle", carolID, hostID)

	req := httptest.NewRequest("POST", "/groups/"+code+"/advance", nil)
	req.SetPathValue("code", code)
	req.Header.Set("X-Participant-Token", hostToken)
	w := httptest.NewRecorder()
	groupHandler.AdvancePhase(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Advance failed: %d. Body: %s", w.Code, w.Body.String())
	}
	var resp models.AdvancePhaseResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Phase != models.PhaseFinalized {
		t.Fatalf("Expected finalized phase, got %q", resp.Phase)
	}

	finalized := finalizedSet(t, groupHandler, code)
	for _, want := range []string{run, book, juggle} {
		if !finalized[want] {
			t.Errorf("Expected challenge %s to be finalized", want)
		}
	}
	for _, wantNot := range []string{swim, sing} {
		if finalized[wantNot] {
			t.Errorf("Challenge %s should not be finalized", wantNot)
		}
	}
}

func TestFinalizeSelectionTieBreaksBySuggestionOrder(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	groupHandler := newGroupHandler(conn)
	groupID, code, hostID, hostToken := createTestGroup(t, conn, models.PhaseVoting, 1)
	bobID, _ := addTestParticipant(t, conn, groupID, "Bob")

	// Two zero-vote suggestions with distinct timestamps; the earlier
	// one wins the single slot.
	firstID := "aaaa0001"
	secondID := "aaaa0002"
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{firstID, secondID} {
		_, err := conn.Exec(`
			INSERT INTO challenges (id, group_id, text, for_participant_id, suggested_by_id, is_finalized, is_completed, created_at)
			VALUES ($1, $2, 'Tied', $3, $4, FALSE, FALSE, $5)
		`, id, groupID, bobID, hostID, base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("Failed to insert challenge: %v", err)
		}
	}

	req := httptest.NewRequest("POST", "/groups/"+code+"/advance", nil)
	req.SetPathValue("code", code)
	req.Header.Set("X-Participant-Token", hostToken)
	w := httptest.NewRecorder()
	groupHandler.AdvancePhase(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Advance failed: %d", w.Code)
	}

	finalized := finalizedSet(t, groupHandler, code)
	if !finalized[firstID] {
		t.Error("Expected the earlier suggestion to win the tie")
	}
	if finalized[secondID] {
		t.Error("Later suggestion should lose the tie")
	}
}
