// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package version implements the per-room version counter behind the sync
protocol.

Every room carries a monotonically increasing version, stored in the
version column of its groups row. Clients poll GET /groups/{code}/version
(one indexed row read) and fetch the full snapshot only when the counter
moved past the version they hold.

# Bump Discipline

The counter bumps exactly when committed room state changes:

  - new participant joins, challenge added or deleted, vote added or
    removed, phase advanced, deadline set, completion toggled
  - rejoins, repeated votes, and advancing past the terminal phase
    change nothing and bump nothing

Bumps run as an atomic SQL increment:

	UPDATE groups SET version = version + 1 WHERE code = $1

so two racing mutations both land; the counter never loses an update
and never decreases. The Execer parameter accepts *sql.Tx so the bump
commits atomically with the domain write it announces.

# Unknown Rooms

Get returns 0 for a room that does not exist. Zero is the "no baseline"
sentinel: a polling client holding version 0 always does a full fetch.
*/
package version
