// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Phases

Rooms move through a fixed forward-only order:

	gathering → suggesting → voting → finalized → tracking

NextPhase returns the successor, clamped at tracking.

# Error Kinds

Error responses carry a stable kind in the error field:

	not_authenticated, not_found, forbidden,
	invalid_state, bad_request, store_error

Clients branch on the kind, not the HTTP status.

# Domain Types

  - Participant: id, name, avatar, host flag
  - Challenge: text, target, suggester, vote set, finalized/completed flags
  - GroupSnapshot: the full room read model, tagged with its version

JSON field names are camelCase to match the web client.
*/
package models
