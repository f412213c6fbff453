// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the deliberating-room API server.

deliberating-room runs planning-poker sessions: a leader opens a room,
members join and vote on one topic at a time, and the leader closes each
round to reveal the average and mode before moving on.

# Starting the Server

	LEADER_KEY_SALT=... DATABASE_URL=postgres://... go run .

Without DATABASE_URL the server runs local-only on the SQLite cache.
Flags override the environment:

	go run . -p 3318 -d "postgres://..." -cache rooms.db

# Configuration

Required settings:

  - LEADER_KEY_SALT (--leader-salt): secret for leader key HMAC

Optional settings:

  - PORT (-p): server port (default: 3318)
  - DATABASE_URL (-d): remote Postgres store
  - CACHE_PATH (--cache): SQLite cache file
  - MAX_TOPICS, SESSION_TTL, POLL_INTERVAL, REMOTE_TIMEOUT, CLEANUP_INTERVAL

A .env file is loaded first when present.

# Architecture

  - rounds: room and round state machine, result aggregation, merge
  - store: remote-first store with local fallback and reconciliation
  - remote: Postgres backend with LISTEN/NOTIFY
  - localcache: SQLite snapshots with expiry
  - sessions: device to member bindings
  - notify: change fan-out, push with polling fallback
  - lifecycle: operations the HTTP layer calls
  - handlers, router, middleware: HTTP surface
  - apperr: error kinds and their status codes

The server, notifier, cleanup and reconcile loops run under one errgroup
and stop together on SIGINT or SIGTERM.
*/
package main
