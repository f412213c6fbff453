// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package lifecycle runs room-level workflows: creating and joining rooms,
driving rounds, leader authorization, cleanup, and diagnostics.

# Identity

Each request carries a device id (X-Device-UUID). CreateRoom remembers the
device as both the leader's actor and the room's creator. JoinRoom is
idempotent per device: a device that already acts as a member gets that
member back.

When a remembered member is missing from the room, the room is fetched up
to three times before the device forgets the member and must join again
(ErrIdentityLost).

# Leader operations

AuthorizeLeader accepts the X-Leader-Key returned by CreateRoom, or no key
from the device that created the room.

# Defaults

Blank topics are filled by the injected name generator (namegen.Random in
production). Rooms expire SessionTTL after creation.
*/
package lifecycle
