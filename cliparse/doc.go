// Copyright (c) 2025 the Friend Challenge authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

ParseFlags builds a Config from CLI flags, an optional YAML config file
(-c), and environment variables, in that order of precedence:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p                 Server port
	-d                 Database URL (SQLite path or Postgres DSN)
	-t                 Database type (sqlite or postgres)
	-c                 YAML config file
	--turnstile-secret Turnstile secret key
	--log-format       Log format (json or text)

# Environment Variables

	PORT                 → -p (default 8787)
	DATABASE_URL         → -d (required)
	DATABASE_TYPE        → -t (default sqlite)
	TURNSTILE_SECRET_KEY → --turnstile-secret (empty disables CAPTCHA)
	LOG_FORMAT           → --log-format (default json)
*/
package cliparse
