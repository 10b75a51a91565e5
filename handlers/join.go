// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/friend-challenge/server/auth"
	"github.com/friend-challenge/server/captcha"
	"github.com/friend-challenge/server/cliparse"
	"github.com/friend-challenge/server/middleware"
	"github.com/friend-challenge/server/models"
	"github.com/friend-challenge/server/version"
)

type JoinHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	counter *version.Counter
	captcha captcha.Verifier
}

func NewJoinHandler(db *sql.DB, cfg cliparse.Config, counter *version.Counter, verifier captcha.Verifier) *JoinHandler {
	return &JoinHandler{db: db, cfg: cfg, counter: counter, captcha: verifier}
}

// Join handles POST /groups/{code}/join
// Two paths: a rejoin with a magic token (no state change, no version
// bump) and a first join (new participant row, version bump, CAPTCHA
// gated).
func (h *JoinHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := auth.NormalizeCode(r.PathValue("code"))
	if code == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "code is required")
		return
	}

	var req models.JoinGroupRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "Invalid JSON")
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

	// Rejoin with a magic token: resolves to the existing participant,
	// touches nothing, bumps nothing.
	if req.ExistingToken != "" {
		var id, name string
		err := h.db.QueryRow(`
			SELECT id, name FROM participants WHERE token = $1 AND group_id = $2
		`, req.ExistingToken, groupID).Scan(&id, &name)

		if err == nil {
			middleware.JSONResponse(w, http.StatusOK, models.JoinGroupResponse{
				ParticipantID: id,
				Token:         req.ExistingToken,
				Name:          name,
				Rejoined:      true,
			})
			return
		}
		if err != sql.ErrNoRows {
			slog.Error("failed to query participant", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
			return
		}
		// Unknown token: fall through and treat as a first join.
	}

	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "name is required")
		return
	}

	ok, err := h.captcha.Verify(req.TurnstileToken, middleware.GetClientIP(r))
	if err != nil {
		slog.Warn("captcha verification errored", "error", err)
		ok = false
	}
	if !ok {
		if req.TurnstileToken == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "CAPTCHA verification required")
		} else {
			middleware.ErrorResponse(w, http.StatusForbidden, models.KindForbidden, "CAPTCHA verification failed")
		}
		return
	}

	participantID, err := auth.GenerateID(4)
	if err != nil {
		slog.Error("failed to generate participant ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to join group")
		return
	}
	avatar, err := auth.PickAvatar(models.Avatars)
	if err != nil {
		slog.Error("failed to pick avatar", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to join group")
		return
	}
	token := auth.GenerateMagicToken()

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO participants (id, group_id, name, avatar, is_host, token, joined_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
	`, participantID, groupID, req.Name, avatar, token, time.Now())
	if err != nil {
		slog.Error("failed to insert participant", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to join group")
		return
	}

	if err := h.counter.Bump(tx, code); err != nil {
		slog.Error("failed to bump version", "error", err, "code", code)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to join group")
		return
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Failed to join group")
		return
	}

	slog.Info("participant joined", "code", code, "participant_id", participantID)

	middleware.JSONResponse(w, http.StatusCreated, models.JoinGroupResponse{
		ParticipantID: participantID,
		Token:         token,
		Name:          req.Name,
		Rejoined:      false,
	})
}

// ResolveToken handles GET /auth/{token}
// Resolves a magic link token back to the owning participant and the
// room code, so a returning user can be dropped straight into their
// group from any device.
func (h *JoinHandler) ResolveToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, models.KindBadRequest, "token is required")
		return
	}

	var resp models.ResolveTokenResponse
	err := h.db.QueryRow(`
		SELECT p.id, p.name, p.avatar, p.is_host, g.code
		FROM participants p
		JOIN groups g ON p.group_id = g.id
		WHERE p.token = $1
	`, token).Scan(&resp.ParticipantID, &resp.Name, &resp.Avatar, &resp.IsHost, &resp.RoomCode)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, models.KindNotFound, "Invalid token")
		return
	}
	if err != nil {
		slog.Error("failed to resolve token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return
	}

	resp.Valid = true
	middleware.JSONResponse(w, http.StatusOK, resp)
}
