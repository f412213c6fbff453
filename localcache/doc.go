// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package localcache is the expiring local copy of every room this process has
touched, one JSON row per room in SQLite.

Two kinds of writes reach it:

  - Put stores a clean copy after the remote store answered. It clears the
    pending and local_only flags.
  - CreateRoom, JoinRoom, CastVote and the other room operations run the
    state machine against the cached copy when the remote is unavailable.
    They set pending, and CreateRoom also sets local_only.

Snapshots expire at the room's expires_at. Expired rows are invisible to
Lookup and are deleted by PurgeExpired.
*/
package localcache
