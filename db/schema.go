// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The SQL is kept portable between PostgreSQL and SQLite: no NOW()
// defaults (timestamps are passed explicitly by the handlers).
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Groups (rooms). The version column is the authoritative sync
-- counter: bumped with an atomic increment in the same transaction as
-- the domain write, so concurrent mutations never lose a bump.
CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    phase TEXT NOT NULL DEFAULT 'gathering'
        CHECK (phase IN ('gathering', 'suggesting', 'voting', 'finalized', 'tracking')),
    challenges_per_person INTEGER NOT NULL DEFAULT 6,
    deadline TIMESTAMP,
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_groups_code ON groups(code);

-- Participants. token is the magic recovery credential; exactly one
-- participant per group carries is_host, set at creation.
CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    avatar TEXT NOT NULL,
    is_host BOOLEAN NOT NULL DEFAULT FALSE,
    token TEXT NOT NULL UNIQUE,
    joined_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_participants_group_id ON participants(group_id);
CREATE INDEX IF NOT EXISTS idx_participants_token ON participants(token);

-- Challenges. Both participant references must resolve within the
-- same group; the authorization layer enforces that, not the schema.
CREATE TABLE IF NOT EXISTS challenges (
    id TEXT PRIMARY KEY,
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    for_participant_id TEXT NOT NULL REFERENCES participants(id),
    suggested_by_id TEXT NOT NULL REFERENCES participants(id),
    is_finalized BOOLEAN NOT NULL DEFAULT FALSE,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_challenges_group_id ON challenges(group_id);

-- Votes as one row per (challenge, participant). Atomic add/remove via
-- INSERT ... ON CONFLICT DO NOTHING / DELETE, so two concurrent voters
-- can never overwrite each other the way a serialized vote list would.
CREATE TABLE IF NOT EXISTS challenge_votes (
    challenge_id TEXT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
    participant_id TEXT NOT NULL REFERENCES participants(id),
    voted_at TIMESTAMP NOT NULL,
    PRIMARY KEY (challenge_id, participant_id)
);

CREATE INDEX IF NOT EXISTS idx_challenge_votes_challenge ON challenge_votes(challenge_id);
`
