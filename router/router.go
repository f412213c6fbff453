// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/deliberating-room/handlers"
	"github.com/danielhkuo/deliberating-room/lifecycle"
	"github.com/danielhkuo/deliberating-room/middleware"
	"github.com/danielhkuo/deliberating-room/notify"
)

func NewRouter(mgr *lifecycle.Manager, notifier *notify.Notifier) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	roomHandler := handlers.NewRoomHandler(mgr)
	votingHandler := handlers.NewVotingHandler(mgr)
	eventsHandler := handlers.NewEventsHandler(mgr, notifier)
	adminHandler := handlers.NewAdminHandler(mgr)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Rooms and membership
	mux.HandleFunc("POST /rooms", middleware.WithLogging(roomHandler.CreateRoom))
	mux.HandleFunc("GET /rooms/check", middleware.WithLogging(roomHandler.CheckRoom))
	mux.HandleFunc("GET /rooms/{id}", middleware.WithLogging(roomHandler.GetRoom))
	mux.HandleFunc("GET /rooms/{id}/status", middleware.WithLogging(roomHandler.GetStatus))
	mux.HandleFunc("POST /rooms/{id}/join", middleware.WithLogging(roomHandler.JoinRoom))
	mux.HandleFunc("GET /rooms/{id}/me", middleware.WithLogging(roomHandler.GetMe))
	mux.HandleFunc("GET /rooms/{id}/diagnostics", middleware.WithLogging(roomHandler.Diagnostics))

	// Voting (leader operations require X-Leader-Key or the creating device)
	mux.HandleFunc("POST /rooms/{id}/votes", middleware.WithLogging(votingHandler.CastVote))
	mux.HandleFunc("POST /rooms/{id}/rounds", middleware.WithLogging(votingHandler.StartRound))
	mux.HandleFunc("POST /rooms/{id}/rounds/{roundId}/close", middleware.WithLogging(votingHandler.CloseRound))
	mux.HandleFunc("POST /rooms/{id}/finish", middleware.WithLogging(votingHandler.FinishRoom))
	mux.HandleFunc("POST /rooms/{roomId}/users/{userId}/observer", middleware.WithLogging(votingHandler.SetObserver))

	// Change events
	mux.HandleFunc("GET /rooms/{id}/events", middleware.WithLogging(eventsHandler.Subscribe))

	// Maintenance
	mux.HandleFunc("POST /cleanup", middleware.WithLogging(adminHandler.Cleanup))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("deliberating-room API v1"))
	})

	return mux
}
