// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/friend-challenge/server/captcha"
	"github.com/friend-challenge/server/cliparse"
	"github.com/friend-challenge/server/handlers"
	"github.com/friend-challenge/server/middleware"
	"github.com/friend-challenge/server/version"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, verifier captcha.Verifier) *http.ServeMux {
	mux := http.NewServeMux()

	counter := version.NewCounter(db)

	// Initialize handlers
	groupHandler := handlers.NewGroupHandler(db, cfg, counter, verifier)
	joinHandler := handlers.NewJoinHandler(db, cfg, counter, verifier)
	challengeHandler := handlers.NewChallengeHandler(db, cfg, counter)

	// Group lifecycle
	mux.HandleFunc("POST /groups", middleware.WithLogging(groupHandler.CreateGroup))
	mux.HandleFunc("GET /groups/{code}", middleware.WithLogging(groupHandler.GetGroup))
	mux.HandleFunc("GET /groups/{code}/version", middleware.WithLogging(groupHandler.GetVersion))
	mux.HandleFunc("POST /groups/{code}/join", middleware.WithLogging(joinHandler.Join))
	mux.HandleFunc("POST /groups/{code}/advance", middleware.WithLogging(groupHandler.AdvancePhase))
	mux.HandleFunc("POST /groups/{code}/deadline", middleware.WithLogging(groupHandler.SetDeadline))
	mux.HandleFunc("GET /groups/{code}/tokens", middleware.WithLogging(groupHandler.GetTokens))

	// Challenge suggestions and votes
	mux.HandleFunc("POST /groups/{code}/challenges", middleware.WithLogging(challengeHandler.AddChallenge))
	mux.HandleFunc("DELETE /challenges/{id}", middleware.WithLogging(challengeHandler.DeleteChallenge))
	mux.HandleFunc("POST /challenges/{id}/vote", middleware.WithLogging(challengeHandler.Vote))
	mux.HandleFunc("DELETE /challenges/{id}/vote", middleware.WithLogging(challengeHandler.RemoveVote))
	mux.HandleFunc("POST /challenges/{id}/toggle", middleware.WithLogging(challengeHandler.ToggleComplete))

	// Magic link recovery
	mux.HandleFunc("GET /auth/{token}", middleware.WithLogging(joinHandler.ResolveToken))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("friend-challenge API v1"))
	})

	return mux
}
