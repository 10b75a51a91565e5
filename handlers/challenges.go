// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/friend-challenge/server/auth"
	"github.com/friend-challenge/server/cliparse"
	"github.com/friend-challenge/server/middleware"
	"github.com/friend-challenge/server/models"
	"github.com/friend-challenge/server/version"
)

type ChallengeHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	counter *version.Counter
}

func NewChallengeHandler(db *sql.DB, cfg cliparse.Config, counter *version.Counter) *ChallengeHandler {
	return &ChallengeHandler{db: db, cfg: cfg, counter: counter}
}

// challengeRow is the slice of a challenge the mutation handlers need
// for their permission and state checks.
type challengeRow struct {
	ID               string
	GroupID          string
	GroupCode        string
	Phase            string
	ForParticipantID string
	SuggestedByID    string
	IsCompleted      bool
}

func (h *ChallengeHandler) loadChallenge(w http.ResponseWriter, id string) *challengeRow {
	var row challengeRow
	err := h.db.QueryRow(`
		SELECT c.id, c.group_id, g.code, g.phase, c.for_participant_id, c.suggested_by_id, c.is_completed
		FROM challenges c
		JOIN groups g ON c.group_id = g.id
		WHERE c.id = $1
	`, id).Scan(&row.ID, &row.GroupID, &row.GroupCode, &row.Phase,
		&row.ForParticipantID, &row.SuggestedByID, &row.IsCompleted)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Challenge not found")
		return nil
	}
	if err != nil {
		slog.Error("failed to query challenge", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return nil
	}
	return &row
}

// AddChallenge handles POST /groups/{code}/challenges
// Suggesting only, and never for yourself.
func (h *ChallengeHandler) AddChallenge(w http.ResponseWriter, r *http.Request) {
	code := auth.NormalizeCode(r.PathValue("code"))

	c := requireCaller(h.db, w, r)
	if c == nil {
		return
	}

	var req models.AddChallengeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "Invalid JSON")
		return
	}
	if req.Text == "" || req.ForParticipantID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "text and forParticipantId are required")
		return
	}

	var groupID, phase string
	err := h.db.QueryRow(`SELECT id, phase FROM groups WHERE code = $1`, code).Scan(&groupID, &phase)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Group not found")
		return
	}
	if err != nil {
		slog.Error("failed to query group", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}

	if c.GroupID != groupID {
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "Not a member of this group")
		return
	}
	if phase != models.PhaseSuggesting {
		middleware.ErrorResponse(w, http.StatusConflict, models.KindInvalidState, "Challenges can only be added during the suggesting phase")
		return
	}
	if req.ForParticipantID == c.ID {
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "You cannot suggest a challenge for yourself")
		return
	}

	// The target must exist in the same room.
	var targetID string
	err = h.db.QueryRow(`
		SELECT id FROM participants WHERE id = $1 AND group_id = $2
	`, req.ForParticipantID, groupID).Scan(&targetID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Target participant not found")
		return
	}
	if err != nil {
		slog.Error("failed to query target participant", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}

	challengeID, err := auth.GenerateID(4)
	if err != nil {
		slog.Error("failed to generate challenge ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to add challenge")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO challenges (id, group_id, text, for_participant_id, suggested_by_id, is_finalized, is_completed, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE, $6)
	`, challengeID, groupID, req.Text, req.ForParticipantID, c.ID, time.Now())
	if err != nil {
		slog.Error("failed to insert challenge", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to add challenge")
		return
	}

	if err := h.counter.Bump(tx, code); err != nil {
		slog.Error("failed to bump version", "error", err, "code", code)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to add challenge")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to add challenge")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.Challenge{
		ID:                       challengeID,
		Text:                     req.Text,
		ForParticipantID:         req.ForParticipantID,
		SuggestedByParticipantID: c.ID,
		Votes:                    []string{},
	})
}

// DeleteChallenge handles DELETE /challenges/{id}
// Only the suggester can take a challenge back.
func (h *ChallengeHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	c := requireCaller(h.db, w, r)
	if c == nil {
		return
	}

	row := h.loadChallenge(w, r.PathValue("id"))
	if row == nil {
		return
	}

	if row.SuggestedByID != c.ID {
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "Only the creator can delete this challenge")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	defer tx.Rollback()

	// Votes go with it via ON DELETE CASCADE.
	_, err = tx.Exec(`DELETE FROM challenges WHERE id = $1`, row.ID)
	if err != nil {
		slog.Error("failed to delete challenge", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to delete challenge")
		return
	}

	if err := h.counter.Bump(tx, row.GroupCode); err != nil {
		slog.Error("failed to bump version", "error", err, "code", row.GroupCode)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to delete challenge")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to delete challenge")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.DeleteChallengeResponse{Success: true})
}

// Vote handles POST /challenges/{id}/vote
// Idempotent: voting twice is one vote. The version bumps only when a
// vote row was actually inserted, so repeated clicks do not trigger
// refetch storms in other clients.
func (h *ChallengeHandler) Vote(w http.ResponseWriter, r *http.Request) {
	h.setVote(w, r, true)
}

// RemoveVote handles DELETE /challenges/{id}/vote
// Idempotent in the same way: removing an absent vote changes nothing
// and bumps nothing.
func (h *ChallengeHandler) RemoveVote(w http.ResponseWriter, r *http.Request) {
	h.setVote(w, r, false)
}

func (h *ChallengeHandler) setVote(w http.ResponseWriter, r *http.Request, add bool) {
	c := requireCaller(h.db, w, r)
	if c == nil {
		return
	}

	row := h.loadChallenge(w, r.PathValue("id"))
	if row == nil {
		return
	}

	if row.GroupID != c.GroupID {
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "Not a member of this group")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	defer tx.Rollback()

	var res sql.Result
	if add {
		res, err = tx.Exec(`
			INSERT INTO challenge_votes (challenge_id, participant_id, voted_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (challenge_id, participant_id) DO NOTHING
		`, row.ID, c.ID, time.Now())
	} else {
		res, err = tx.Exec(`
			DELETE FROM challenge_votes WHERE challenge_id = $1 AND participant_id = $2
		`, row.ID, c.ID)
	}
	if err != nil {
		slog.Error("failed to write vote", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to record vote")
		return
	}

	affected, err := res.RowsAffected()
	if err != nil {
		slog.Error("failed to read rows affected", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to record vote")
		return
	}

	if affected > 0 {
		if err := h.counter.Bump(tx, row.GroupCode); err != nil {
			slog.Error("failed to bump version", "error", err, "code", row.GroupCode)
			middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to record vote")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to record vote")
		return
	}

	votes, err := loadVotes(h.db, row.ID)
	if err != nil {
		slog.Error("failed to load votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to load votes")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{Votes: votes})
}

// ToggleComplete handles POST /challenges/{id}/toggle
// Only the participant the challenge is for can mark it done, and only
// once the lineup exists.
func (h *ChallengeHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	c := requireCaller(h.db, w, r)
	if c == nil {
		return
	}

	row := h.loadChallenge(w, r.PathValue("id"))
	if row == nil {
		return
	}

	if row.ForParticipantID != c.ID {
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "Only the assigned participant can toggle completion")
		return
	}
	if row.Phase != models.PhaseFinalized && row.Phase != models.PhaseTracking {
		middleware.ErrorResponse(w, http.StatusConflict, models.KindInvalidState, "Challenges can only be completed after finalization")
		return
	}

	newState := !row.IsCompleted

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE challenges SET is_completed = $1 WHERE id = $2`, newState, row.ID)
	if err != nil {
		slog.Error("failed to toggle completion", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to toggle completion")
		return
	}

	if err := h.counter.Bump(tx, row.GroupCode); err != nil {
		slog.Error("failed to bump version", "error", err, "code", row.GroupCode)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to toggle completion")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to toggle completion")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ToggleCompleteResponse{IsCompleted: newState})
}

func loadVotes(db *sql.DB, challengeID string) ([]string, error) {
	rows, err := db.Query(`
		SELECT participant_id FROM challenge_votes WHERE challenge_id = $1 ORDER BY voted_at
	`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		votes = append(votes, id)
	}
	return votes, rows.Err()
}
