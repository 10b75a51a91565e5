// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/friend-challenge/server/middleware"
	"github.com/friend-challenge/server/models"
)

// caller is the authenticated participant behind a mutation request.
type caller struct {
	ID      string
	GroupID string
	Name    string
	IsHost  bool
}

// requireCaller resolves the X-Participant-Token header to a
// participant. The magic token travels in a header, never in the JSON
// body, so a forged body cannot impersonate anyone. Writes the error
// response and returns nil if the header is missing or unknown.
func requireCaller(db *sql.DB, w http.ResponseWriter, r *http.Request) *caller {
	token := r.Header.Get("X-Participant-Token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.KindNotAuthenticated, "X-Participant-Token header required")
		return nil
	}

	var c caller
	err := db.QueryRow(`
		SELECT id, group_id, name, is_host FROM participants WHERE token = $1
	`, token).Scan(&c.ID, &c.GroupID, &c.Name, &c.IsHost)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusUnauthorized, models.KindNotAuthenticated, "Unknown participant token")
		return nil
	}
	if err != nil {
		slog.Error("failed to resolve participant token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, models.KindStoreError, "Database error")
		return nil
	}

	return &c
}
