// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: PostgreSQL connection string (empty runs local-only)
  - CachePath: SQLite file for the local cache and session records
  - LeaderKeySalt: Secret for leader key HMAC (required)
  - MaxTopics: Topic ceiling per room (default: 10)
  - SessionTTL: Room, snapshot and session lifetime (default: 24h)
  - PollInterval: Change polling interval when push is down (default: 5s)
  - RemoteTimeout: Bound on each remote call before fallback (default: 3s)
  - CleanupInterval: Expiry sweep interval (default: 10m)

# CLI Flags

	-p                Server port
	-d                Database URL
	-cache            Cache path
	-env              Env file (default .env)
	-leader-salt      Leader key salt
	-max-topics       Topic ceiling
	-session-ttl      Session lifetime
	-poll-interval    Poll interval
	-remote-timeout   Remote call timeout
	-cleanup-interval Cleanup interval

# Environment Variables

The env file is loaded with godotenv first. It never overrides variables
already present in the process environment. Flags then fall back to:

	PORT             → -p
	DATABASE_URL     → -d
	CACHE_PATH       → -cache
	LEADER_KEY_SALT  → -leader-salt
	MAX_TOPICS       → -max-topics
	SESSION_TTL      → -session-ttl
	POLL_INTERVAL    → -poll-interval
	REMOTE_TIMEOUT   → -remote-timeout
	CLEANUP_INTERVAL → -cleanup-interval

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if LEADER_KEY_SALT is missing, if a number or
duration does not parse, or if MaxTopics is below 1.
*/
package cliparse
