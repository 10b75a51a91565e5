// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Friend Challenge API server.

Friend Challenge is a collaborative "year of the challenge" service: a
group of friends gathers in a room, suggests challenges for each other,
votes on them, and tracks the finalized lineup over the year. All
clients converge on shared state through version-counter polling: each
mutation bumps a per-room version, and clients fetch the full room
snapshot only when the cheap version check reports a change.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=challenge.db go run main.go

Or with flags:

	go run main.go -p 8787 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path or PostgreSQL connection string

Optional settings:

  - DATABASE_TYPE (-t): "sqlite" (default) or "postgres"
  - PORT (-p): Server port (default: 8787)
  - TURNSTILE_SECRET_KEY (--turnstile-secret): CAPTCHA secret; empty disables verification
  - LOG_FORMAT (--log-format): "json" (default) or "text"
  - -c: YAML config file supplying any of the above

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (groups, join, challenges)
  - router: Route definitions using Go 1.22+ routing
  - version: Per-room version counter backing the sync protocol
  - middleware: Logging, JSON helpers
  - models: Request/response types, phases, error kinds
  - auth: Join codes, magic tokens, ID generation
  - captcha: Cloudflare Turnstile verification
  - db: Schema creation
  - cliparse: Configuration parsing
  - syncclient: Go client with the polling loop
  - fieldcrypto: AES-GCM helpers matching the web client's field encryption

See package documentation for each component.
*/
package main
