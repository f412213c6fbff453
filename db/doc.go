// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles schema creation for both storage backends.

# Schema Creation

	if err := db.CreateRemoteSchema(pg); err != nil {
		log.Fatal(err)
	}
	if err := db.CreateLocalSchema(cache); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Remote Tables (PostgreSQL)

  - rooms: room metadata, topic counter and ceiling, expiry
  - users: members in join order (seq), leader and observer flags
  - rounds: one row per topic; average, mode[] and total_votes once closed
  - votes: one value per (round_id, user_id)

# Relationships

	rooms 1──* users
	rooms 1──* rounds
	rounds 1──* votes

All foreign keys use ON DELETE CASCADE, so deleting an expired room removes
everything under it. The current round is the one with the highest
topic_number.

# Local Tables (SQLite)

  - room_snapshot: one JSON room per row with pending and local_only flags
  - session_record: device to room associations (actor or creator)

Local timestamps are unix milliseconds.
*/
package db
