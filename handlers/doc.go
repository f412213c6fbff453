// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the deliberating-room API.

# Handler Types

Each handler is a struct wrapping the lifecycle manager:

  - RoomHandler: room creation, probes, membership and diagnostics
  - VotingHandler: votes, round transitions and the observer toggle
  - EventsHandler: WebSocket change feed backed by the notifier
  - AdminHandler: expiry cleanup

Handlers are created via constructor functions:

	roomHandler := handlers.NewRoomHandler(mgr)
	eventsHandler := handlers.NewEventsHandler(mgr, notifier)

# Errors

Manager errors carry an apperr.Kind and are written with
middleware.AppError, which maps the kind to a status code:

	not_found → 404, permission → 403, transient → 503,
	conflict → 409, validation → 400, unknown → 500

The observer toggle is the exception. Its response shape is shared with
other processes, so every failure is a 500 with {"success":false,"error":...}.

# Identity

The local actor is identified by the X-Device-UUID header. Leader
operations (start, close, finish) accept either the X-Leader-Key header or
a request from the device that created the room.

# Events

GET /rooms/{id}/events upgrades to a WebSocket and writes

	{"type":"room_changed","room_id":"ABC123"}

whenever the room changes. Bursts are coalesced; clients re-fetch the room.
*/
package handlers
