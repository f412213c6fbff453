// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the deliberating-room API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(mgr, notifier)

# Endpoints

Health:

	GET /health
	GET /

Rooms:

	POST /rooms                - Create room (returns leader_key)
	GET  /rooms/check?id=      - Existence probe
	GET  /rooms/{id}           - Full room
	GET  /rooms/{id}/status    - Summary with expiry
	POST /rooms/{id}/join      - Join (idempotent per device)
	GET  /rooms/{id}/me        - Member bound to this device
	GET  /rooms/{id}/diagnostics

Voting:

	POST /rooms/{id}/votes                      - Cast or replace a vote
	POST /rooms/{id}/rounds                     - Start next topic (leader)
	POST /rooms/{id}/rounds/{roundId}/close     - Close round (leader)
	POST /rooms/{id}/finish                     - No more topics (leader)
	POST /rooms/{roomId}/users/{userId}/observer

Events and maintenance:

	GET  /rooms/{id}/events - WebSocket change feed
	POST /cleanup           - Purge expired data

Every route except the two liveness endpoints is wrapped with
middleware.WithLogging. CORS is applied around the whole mux in main.
*/
package router
