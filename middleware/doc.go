// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms). The wrapper passes websocket hijacks through.

# CORS Middleware

Enable cross-origin requests for frontend access:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization, X-Device-UUID, X-Leader-Key.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Write a classified error with the status of its kind:

	room, err := mgr.GetRoom(ctx, id)
	if err != nil {
		middleware.AppError(w, err)
		return
	}

Kinds map to 404, 403, 503, 409, 400 and 500. Transient and unknown
errors are logged and their driver detail is not sent to the client.

Parse JSON request bodies:

	var req models.CreateRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Device Identity

DeviceID returns the X-Device-UUID header when it parses as a UUID and ""
otherwise. An empty device id is anonymous: nothing is remembered for it.
*/
package middleware
