// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package sessions remembers, per device, which member a device acts as in
each room and which rooms it created.

Records live in the session_record table of the local cache file and
carry a TTL from creation. Re-recording refreshes the TTL.

	ids := sessions.New(db, 24*time.Hour)
	dev := ids.Device(r.Header.Get("X-Device-UUID"))
	dev.RememberActor(ctx, roomID, userID)
	userID, ok, err := dev.ResolveActor(ctx, roomID)

IsCreator fails closed: a missing, expired, or unreadable record reports
false. ExpireAll is run at startup and by the cleanup loop.
*/
package sessions
