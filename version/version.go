// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package version

import (
	"database/sql"
	"fmt"
)

// Execer is satisfied by both *sql.DB and *sql.Tx, so a bump can run
// inside the same transaction as the domain write it belongs to.
type Execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Counter answers "has anything in this room changed since version V"
// in a single indexed row read. The counter lives in the version
// column of the groups row: bumping is an atomic SQL increment, so
// concurrent mutations never lose an update, and a client that
// observes a new version is guaranteed to see the committed state that
// produced it.
type Counter struct {
	db *sql.DB
}

// NewCounter creates a counter backed by the groups table.
func NewCounter(db *sql.DB) *Counter {
	return &Counter{db: db}
}

// Init sets the counter for a freshly created room to 1. Must run
// after the room row is durably written; a client polling immediately
// after creation sees a consistent room+version pair.
func (c *Counter) Init(ex Execer, code string) error {
	_, err := ex.Exec(`UPDATE groups SET version = 1 WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to init version for %s: %w", code, err)
	}
	return nil
}

// Bump increments the counter by exactly one. Callers invoke it after
// the corresponding state write, inside the same transaction where one
// is open. The increment runs in SQL so two racing mutations both
// land: the counter never loses a bump and never decreases.
func (c *Counter) Bump(ex Execer, code string) error {
	_, err := ex.Exec(`UPDATE groups SET version = version + 1 WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to bump version for %s: %w", code, err)
	}
	return nil
}

// Get returns the current version, or 0 if the room is unknown.
// Zero is not an error: it tells the polling client "no baseline,
// force a full fetch".
func (c *Counter) Get(code string) (int64, error) {
	var v int64
	err := c.db.QueryRow(`SELECT version FROM groups WHERE code = $1`, code).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read version for %s: %w", code, err)
	}
	return v, nil
}
