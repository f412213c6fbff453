// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides room codes, ids, and leader key utilities.

# Leader Keys

Leader keys use HMAC-SHA256 to create deterministic, verifiable keys:

	leaderKey := auth.GenerateLeaderKey(roomID, salt)
	err := auth.ValidateLeaderKey(roomID, leaderKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same room ID and salt always produce the same key. This allows validation
without storing the key in either backend. Handlers read it from the
X-Leader-Key header on close, start and finish requests.

# Room Codes

Room codes are six uppercase base36 characters:

	code, err := auth.GenerateRoomCode()   // e.g. "K3Z09Q"
	code, err = auth.NormalizeRoomCode(" k3z09q ")

Collisions are possible but unlikely; nothing retries on collision.

# ID Generation

Random hex IDs for session records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
