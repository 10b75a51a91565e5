// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

type candidate struct {
	id        string
	target    string
	votes     int
	createdAt time.Time
}

// finalizeSelection picks each participant's lineup when the room
// enters the finalized phase: the top perPerson challenges per target
// by vote count, ties broken by suggestion order. Runs inside the
// phase-advance transaction so the lineup and the phase flip are one
// atomic change.
func finalizeSelection(tx *sql.Tx, groupID string, perPerson int) error {
	rows, err := tx.Query(`
		SELECT c.id, c.for_participant_id, c.created_at, COUNT(cv.participant_id)
		FROM challenges c
		LEFT JOIN challenge_votes cv ON cv.challenge_id = c.id
		WHERE c.group_id = $1
		GROUP BY c.id, c.for_participant_id, c.created_at
	`, groupID)
	if err != nil {
		return fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	byTarget := map[string][]candidate{}
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.target, &c.createdAt, &c.votes); err != nil {
			return fmt.Errorf("failed to scan candidate: %w", err)
		}
		byTarget[c.target] = append(byTarget[c.target], c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read candidates: %w", err)
	}

	selected := []string{}
	for _, cands := range byTarget {
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].votes != cands[j].votes {
				return cands[i].votes > cands[j].votes
			}
			if !cands[i].createdAt.Equal(cands[j].createdAt) {
				return cands[i].createdAt.Before(cands[j].createdAt)
			}
			return cands[i].id < cands[j].id
		})
		n := perPerson
		if n > len(cands) {
			n = len(cands)
		}
		for _, c := range cands[:n] {
			selected = append(selected, c.id)
		}
	}

	// Reset first so a re-run (host re-entering finalized after a data
	// fix) cannot leave stale winners behind.
	if _, err := tx.Exec(`UPDATE challenges SET is_finalized = FALSE WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("failed to reset finalized flags: %w", err)
	}
	for _, id := range selected {
		if _, err := tx.Exec(`UPDATE challenges SET is_finalized = TRUE WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to mark challenge finalized: %w", err)
		}
	}
	return nil
}
