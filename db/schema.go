// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// Driver names registered by the blank imports in main
const (
	RemoteDriver = "postgres"
	LocalDriver  = "sqlite"
)

// NotifyChannel is the LISTEN/NOTIFY channel every remote write signals on
const NotifyChannel = "room_changes"

// CreateRemoteSchema creates the Postgres tables.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateRemoteSchema(db *sql.DB) error {
	_, err := db.Exec(remoteSchema)
	if err != nil {
		return fmt.Errorf("failed to create remote schema: %w", err)
	}

	return nil
}

// CreateLocalSchema creates the SQLite cache and session tables.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateLocalSchema(db *sql.DB) error {
	_, err := db.Exec(localSchema)
	if err != nil {
		return fmt.Errorf("failed to create local schema: %w", err)
	}

	return nil
}

const remoteSchema = `
-- Rooms
CREATE TABLE IF NOT EXISTS rooms (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    story_link TEXT NOT NULL DEFAULT '',
    leader_id TEXT NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    has_more_topics BOOLEAN NOT NULL DEFAULT TRUE,
    current_topic_count INTEGER NOT NULL DEFAULT 1,
    max_topics INTEGER NOT NULL DEFAULT 10,
    session_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rooms_expires_at ON rooms(expires_at);

-- Users (members, leader included)
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    is_leader BOOLEAN NOT NULL DEFAULT FALSE,
    is_observer BOOLEAN NOT NULL DEFAULT FALSE,
    seq BIGSERIAL
);

CREATE INDEX IF NOT EXISTS idx_users_room_id ON users(room_id, seq);

-- Rounds
CREATE TABLE IF NOT EXISTS rounds (
    id TEXT PRIMARY KEY,
    room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    topic TEXT NOT NULL,
    topic_number INTEGER NOT NULL,
    is_open BOOLEAN NOT NULL DEFAULT TRUE,
    average DOUBLE PRECISION,
    mode DOUBLE PRECISION[],
    total_votes INTEGER,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    closed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_rounds_room_id ON rounds(room_id, topic_number);

-- Votes
CREATE TABLE IF NOT EXISTS votes (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL,
    room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    round_id TEXT NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
    value DOUBLE PRECISION NOT NULL CHECK (value >= 0),
    UNIQUE (round_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_room_id ON votes(room_id);
`

// Timestamps are unix milliseconds so range comparisons stay numeric.
const localSchema = `
-- One denormalized room per row
CREATE TABLE IF NOT EXISTS room_snapshot (
    room_id TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    pending INTEGER NOT NULL DEFAULT 0,
    local_only INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_room_snapshot_expires_at ON room_snapshot(expires_at);
CREATE INDEX IF NOT EXISTS idx_room_snapshot_pending ON room_snapshot(pending);

-- Device to room associations
CREATE TABLE IF NOT EXISTS session_record (
    device_id TEXT NOT NULL,
    room_id TEXT NOT NULL,
    kind TEXT NOT NULL CHECK (kind IN ('actor', 'creator')),
    user_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL,
    PRIMARY KEY (device_id, room_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_session_record_expires_at ON session_record(expires_at);
`
