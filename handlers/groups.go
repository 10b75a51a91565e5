// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/friend-challenge/server/auth"
	"github.com/friend-challenge/server/captcha"
	"github.com/friend-challenge/server/cliparse"
	"github.com/friend-challenge/server/middleware"
	"github.com/friend-challenge/server/models"
	"github.com/friend-challenge/server/version"
)

type GroupHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	counter *version.Counter
	captcha captcha.Verifier
}

func NewGroupHandler(db *sql.DB, cfg cliparse.Config, counter *version.Counter, verifier captcha.Verifier) *GroupHandler {
	return &GroupHandler{db: db, cfg: cfg, counter: counter, captcha: verifier}
}

// CreateGroup handles POST /groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGroupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "name is required")
		return
	}
	if req.HostName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "hostName is required")
		return
	}
	if req.ChallengesPerPerson <= 0 {
		req.ChallengesPerPerson = 6
	}

	if !h.verifyCaptcha(w, r, req.TurnstileToken) {
		return
	}

	groupID, err := auth.GenerateID(4)
	if err != nil {
		slog.Error("failed to generate group ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to create group")
		return
	}
	hostID, err := auth.GenerateID(4)
	if err != nil {
		slog.Error("failed to generate host ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to create group")
		return
	}
	code, err := auth.GenerateJoinCode()
	if err != nil {
		slog.Error("failed to generate join code", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to create group")
		return
	}
	avatar, err := auth.PickAvatar(models.Avatars)
	if err != nil {
		slog.Error("failed to pick avatar", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to create group")
		return
	}
	token := auth.GenerateMagicToken()
	now := time.Now()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO groups (id, code, name, phase, challenges_per_person, version, created_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
	`, groupID, code, req.Name, models.PhaseGathering, req.ChallengesPerPerson, now)
	if err != nil {
		slog.Error("failed to insert group", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to create group")
		return
	}

	_, err = tx.Exec(`
		INSERT INTO participants (id, group_id, name, avatar, is_host, token, joined_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
	`, hostID, groupID, req.HostName, avatar, token, now)
	if err != nil {
		slog.Error("failed to insert host participant", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to create group")
		return
	}

	// Counter starts at 1; runs after the room row is written so a
	// client polling right after creation sees a consistent pair.
	if err := h.counter.Init(tx, code); err != nil {
		slog.Error("failed to init version counter", "error", err, "code", code)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to create group")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to create group")
		return
	}

	slog.Info("group created", "group_id", groupID, "code", code)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateGroupResponse{
		ID:                  groupID,
		Code:                code,
		Name:                req.Name,
		Phase:               models.PhaseGathering,
		ChallengesPerPerson: req.ChallengesPerPerson,
		Version:             1,
		HostID:              hostID,
		Token:               token,
		Participants: []models.Participant{
			{ID: hostID, Name: req.HostName, Avatar: avatar, IsHost: true},
		},
		Challenges: []models.Challenge{},
	})
}

// GetGroup handles GET /groups/{code}
// Returns the full snapshot: room metadata, participants, challenges
// with their vote sets, tagged with the version it represents. Clients
// only call this after the version check reported a change.
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	code := auth.NormalizeCode(r.PathValue("code"))
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "code is required")
		return
	}

	var snap models.GroupSnapshot
	var deadline sql.NullTime
	err := h.db.QueryRow(`
		SELECT id, code, name, phase, challenges_per_person, deadline, version, created_at
		FROM groups WHERE code = $1
	`, code).Scan(
		&snap.ID, &snap.Code, &snap.Name, &snap.Phase,
		&snap.ChallengesPerPerson, &deadline, &snap.Version, &snap.CreatedAt,
	)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Group not found")
		return
	}
	if err != nil {
		slog.Error("failed to query group", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}

	if deadline.Valid {
		d := deadline.Time
		snap.Deadline = &d
		snap.DeadlineIn = humanize.Time(d)
	}

	participants, err := loadParticipants(h.db, snap.ID)
	if err != nil {
		slog.Error("failed to query participants", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	snap.Participants = participants

	challenges, err := loadChallenges(h.db, snap.ID)
	if err != nil {
		slog.Error("failed to query challenges", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	snap.Challenges = challenges

	middleware.JSONResponse(w, http.StatusOK, snap)
}

// GetVersion handles GET /groups/{code}/version
// The cheap poll target: one indexed row read, no snapshot assembly.
// Unknown rooms answer version 0, the "no baseline, do a full fetch"
// sentinel.
func (h *GroupHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	code := auth.NormalizeCode(r.PathValue("code"))
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "code is required")
		return
	}

	v, err := h.counter.Get(code)
	if err != nil {
		slog.Error("failed to read version", "error", err, "code", code)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VersionResponse{Version: v})
}

// AdvancePhase handles POST /groups/{code}/advance
// Host only. Moves the phase forward exactly one step; advancing past
// the terminal phase is a no-op that returns the current phase without
// bumping the version. Entering the finalized phase runs the
// vote-based selection.
func (h *GroupHandler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	code := auth.NormalizeCode(r.PathValue("code"))
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "code is required")
		return
	}

	c := requireCaller(h.db, w, r)
	if c == nil {
		return
	}

	var groupID, phase string
	var perPerson int
	var v int64
	err := h.db.QueryRow(`
		SELECT id, phase, challenges_per_person, version FROM groups WHERE code = $1
	`, code).Scan(&groupID, &phase, &perPerson, &v)

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
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "Not a participant of this group")
		return
	}
	if !c.IsHost {
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "Only the host can advance the phase")
		return
	}

	next := models.NextPhase(phase)
	if next == phase {
		// Already at the terminal phase. No state change, no bump.
		middleware.JSONResponse(w, http.StatusOK, models.AdvancePhaseResponse{Phase: phase, Version: v})
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE groups SET phase = $1 WHERE id = $2`, next, groupID)
	if err != nil {
		slog.Error("failed to advance phase", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to advance phase")
		return
	}

	if next == models.PhaseFinalized {
		if err := finalizeSelection(tx, groupID, perPerson); err != nil {
			slog.Error("failed to finalize selection", "error", err, "group_id", groupID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to advance phase")
			return
		}
	}

	if err := h.counter.Bump(tx, code); err != nil {
		slog.Error("failed to bump version", "error", err, "code", code)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to advance phase")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to advance phase")
		return
	}

	slog.Info("phase advanced", "code", code, "from", phase, "to", next)

	middleware.JSONResponse(w, http.StatusOK, models.AdvancePhaseResponse{Phase: next, Version: v + 1})
}

// SetDeadline handles POST /groups/{code}/deadline
// Host only.
func (h *GroupHandler) SetDeadline(w http.ResponseWriter, r *http.Request) {
	code := auth.NormalizeCode(r.PathValue("code"))
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "code is required")
		return
	}

	c := requireCaller(h.db, w, r)
	if c == nil {
		return
	}

	var req models.SetDeadlineRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "Invalid JSON")
		return
	}
	if req.Deadline.IsZero() {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "deadline is required")
		return
	}

	var groupID string
	err := h.db.QueryRow(`SELECT id FROM groups WHERE code = $1`, code).Scan(&groupID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Group not found")
		return
	}
	if err != nil {
		slog.Error("failed to query group", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}

	if c.GroupID != groupID || !c.IsHost {
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "Only the host can set the deadline")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE groups SET deadline = $1 WHERE id = $2`, req.Deadline, groupID)
	if err != nil {
		slog.Error("failed to set deadline", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to set deadline")
		return
	}

	if err := h.counter.Bump(tx, code); err != nil {
		slog.Error("failed to bump version", "error", err, "code", code)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to set deadline")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to set deadline")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SetDeadlineResponse{Deadline: req.Deadline})
}

// GetTokens handles GET /groups/{code}/tokens
// Host only: lists every participant's magic token so the host can
// re-send a lost recovery link.
func (h *GroupHandler) GetTokens(w http.ResponseWriter, r *http.Request) {
	code := auth.NormalizeCode(r.PathValue("code"))
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "code is required")
		return
	}

	c := requireCaller(h.db, w, r)
	if c == nil {
		return
	}

	var groupID string
	err := h.db.QueryRow(`SELECT id FROM groups WHERE code = $1`, code).Scan(&groupID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Group not found")
		return
	}
	if err != nil {
		slog.Error("failed to query group", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}

	if c.GroupID != groupID || !c.IsHost {
		middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "Only the host can access tokens")
		return
	}

	rows, err := h.db.Query(`
		SELECT id, name, avatar, token FROM participants WHERE group_id = $1 ORDER BY joined_at, id
	`, groupID)
	if err != nil {
		slog.Error("failed to query participant tokens", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	defer rows.Close()

	tokens := []models.ParticipantToken{}
	for rows.Next() {
		var pt models.ParticipantToken
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.Avatar, &pt.Token); err != nil {
			slog.Error("failed to scan participant token", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
			return
		}
		tokens = append(tokens, pt)
	}

	middleware.JSONResponse(w, http.StatusOK, models.TokensResponse{Participants: tokens})
}

func (h *GroupHandler) verifyCaptcha(w http.ResponseWriter, r *http.Request, token string) bool {
	ok, err := h.captcha.Verify(token, middleware.GetClientIP(r))
	if err != nil {
		slog.Warn("captcha verification errored", "error", err)
		ok = false
	}
	if !ok {
		if token == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "CAPTCHA verification required")
		} else {
			middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "CAPTCHA verification failed")
		}
		return false
	}
	return true
}

// loadParticipants fetches the participant list for a snapshot.
// Magic tokens are never included here.
func loadParticipants(db *sql.DB, groupID string) ([]models.Participant, error) {
	rows, err := db.Query(`
		SELECT id, name, avatar, is_host FROM participants WHERE group_id = $1 ORDER BY joined_at, id
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Avatar, &p.IsHost); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// loadChallenges fetches the challenge list with vote sets.
func loadChallenges(db *sql.DB, groupID string) ([]models.Challenge, error) {
	rows, err := db.Query(`
		SELECT id, text, for_participant_id, suggested_by_id, is_finalized, is_completed
		FROM challenges WHERE group_id = $1 ORDER BY created_at, id
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	challenges := []models.Challenge{}
	index := map[string]int{}
	for rows.Next() {
		var ch models.Challenge
		if err := rows.Scan(&ch.ID, &ch.Text, &ch.ForParticipantID,
			&ch.SuggestedByParticipantID, &ch.IsFinalized, &ch.IsCompleted); err != nil {
			return nil, err
		}
		ch.Votes = []string{}
		index[ch.ID] = len(challenges)
		challenges = append(challenges, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	voteRows, err := db.Query(`
		SELECT cv.challenge_id, cv.participant_id
		FROM challenge_votes cv
		JOIN challenges c ON cv.challenge_id = c.id
		WHERE c.group_id = $1
		ORDER BY cv.voted_at, cv.participant_id
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer voteRows.Close()

	for voteRows.Next() {
		var challengeID, participantID string
		if err := voteRows.Scan(&challengeID, &participantID); err != nil {
			return nil, err
		}
		if i, ok := index[challengeID]; ok {
			challenges[i].Votes = append(challenges[i].Votes, participantID)
		}
	}
	return challenges, voteRows.Err()
}
