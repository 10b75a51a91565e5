// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Friend Challenge API.

# Handler Types

Each handler is a struct with database, config, and version counter
dependencies:

  - GroupHandler: Room lifecycle (create, snapshot, version, advance, deadline, tokens)
  - JoinHandler: Joining, rejoining, magic link resolution
  - ChallengeHandler: Suggestions, votes, completion toggles

Handlers are created via constructor functions:

	groupHandler := handlers.NewGroupHandler(db, cfg, counter, verifier)

# Authentication

Mutations authenticate through the X-Participant-Token header, resolved
by requireCaller to a participant row. The suggester or voter identity
is always the authenticated caller; it never comes from the request
body, so a forged body cannot impersonate anyone. Room creation and
first joins are instead gated by CAPTCHA verification.

# Room Lifecycle

Rooms progress through five phases:

	gathering → suggesting → voting → finalized → tracking

	POST /groups                  → CreateGroup (CAPTCHA, returns host token)
	POST /groups/{code}/join      → Join (CAPTCHA for first joins)
	POST /groups/{code}/advance   → AdvancePhase (host only, one step)
	POST /groups/{code}/deadline  → SetDeadline (host only)
	GET  /groups/{code}/tokens    → GetTokens (host only)

Advancing into finalized runs the vote-based selection in selection.go:
the top challenges-per-person suggestions per target get is_finalized.

# Sync Protocol

	GET /groups/{code}/version → GetVersion (cheap poll target)
	GET /groups/{code}         → GetGroup (full snapshot, on version change)

Every handler that changes committed state bumps the room version in
the same transaction. No-ops (repeat votes, terminal advances, rejoins)
do not bump, so idle clients never refetch.

# Challenge Flow

	POST   /groups/{code}/challenges → AddChallenge (suggesting phase, not for yourself)
	DELETE /challenges/{id}          → DeleteChallenge (suggester only)
	POST   /challenges/{id}/vote     → Vote (idempotent)
	DELETE /challenges/{id}/vote     → RemoveVote (idempotent)
	POST   /challenges/{id}/toggle   → ToggleComplete (assignee, finalized/tracking only)
*/
package handlers
