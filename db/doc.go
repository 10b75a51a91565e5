// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

CreateSchema initializes all required tables and is safe to call
multiple times (IF NOT EXISTS throughout). The SQL stays portable
between SQLite and PostgreSQL: no NOW() defaults, timestamps are
supplied by the handlers.

# Tables

  - groups: room metadata, phase, and the authoritative version counter
  - participants: members with magic tokens, one host per room
  - challenges: suggestions with finalized/completed flags
  - challenge_votes: one row per (challenge, participant) vote

# Relationships

	groups 1──* participants
	groups 1──* challenges
	challenges 1──* challenge_votes

Child rows cascade on room deletion.
*/
package db
