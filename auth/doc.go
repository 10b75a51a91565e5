// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides join codes, magic tokens, and ID generation.

# Join Codes

Rooms are addressed by six-character codes drawn from an unambiguous
alphabet (no 0/O, 1/I/L):

	code, err := auth.GenerateJoinCode()

Codes read aloud well and survive handwriting. NormalizeCode uppercases
and trims user input before lookup, so "abc123 " finds ABC123.

# Magic Tokens

Each participant gets a random UUID token at creation:

	token := auth.GenerateMagicToken()

The token is the participant's only credential. It authenticates
mutations via the X-Participant-Token header and powers the magic
recovery link (GET /auth/{token}).

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(4) // 8 hex characters
*/
package auth
