// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store implements RoomStore, the single entry point for room
persistence.

Every operation goes through one combinator:

 1. Call the remote store with a bounded timeout.
 2. On success, write the result through to the local cache.
 3. On a transient or unclassified failure, run the same operation
    against the cache. The cache applies the same state machine and flags
    the snapshot pending.

Permission, conflict and validation errors from the remote are returned as
they are. A missing room is authoritative and evicts the cached copy, unless
that copy was created locally while the remote was down.

Reconcile replays pending snapshots into the remote with rounds.Merge
semantics. It also runs automatically the first time the remote answers for
a room whose snapshot is pending.

A nil remote runs everything against the cache.
*/
package store
