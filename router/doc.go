// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Friend Challenge API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, verifier)

# Endpoints

Group lifecycle:

	POST /groups                 - Create room (CAPTCHA)
	GET  /groups/{code}          - Full room snapshot
	GET  /groups/{code}/version  - Cheap version check (poll target)
	POST /groups/{code}/join     - Join or rejoin
	POST /groups/{code}/advance  - Advance phase (host)
	POST /groups/{code}/deadline - Set deadline (host)
	GET  /groups/{code}/tokens   - List magic tokens (host)

Challenges:

	POST   /groups/{code}/challenges - Suggest a challenge
	DELETE /challenges/{id}          - Delete own suggestion
	POST   /challenges/{id}/vote     - Vote
	DELETE /challenges/{id}/vote     - Retract vote
	POST   /challenges/{id}/toggle   - Toggle completion

Recovery:

	GET /auth/{token} - Resolve a magic link token
*/
package router
