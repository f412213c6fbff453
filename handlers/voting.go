// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/deliberating-room/lifecycle"
	"github.com/danielhkuo/deliberating-room/middleware"
	"github.com/danielhkuo/deliberating-room/models"
)

type VotingHandler struct {
	mgr *lifecycle.Manager
}

func NewVotingHandler(mgr *lifecycle.Manager) *VotingHandler {
	return &VotingHandler{mgr: mgr}
}

// authorizeLeader writes the failure and reports false when the caller
// may not run leader operations on roomID
func (h *VotingHandler) authorizeLeader(w http.ResponseWriter, r *http.Request, roomID string) bool {
	err := h.mgr.AuthorizeLeader(r.Context(), middleware.DeviceID(r), roomID, r.Header.Get(middleware.HeaderLeaderKey))
	if err != nil {
		middleware.AppError(w, err)
		return false
	}
	return true
}

// CastVote handles POST /rooms/{id}/votes
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.UserID == "" || req.RoundID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "user_id and round_id are required")
		return
	}

	room, err := h.mgr.CastVote(r.Context(), r.PathValue("id"), req)
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, room)
}

// StartRound handles POST /rooms/{id}/rounds
func (h *VotingHandler) StartRound(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if !h.authorizeLeader(w, r, roomID) {
		return
	}

	var req models.StartRoundRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp, err := h.mgr.StartRound(r.Context(), roomID, req.Topic)
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// CloseRound handles POST /rooms/{id}/rounds/{roundId}/close
func (h *VotingHandler) CloseRound(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if !h.authorizeLeader(w, r, roomID) {
		return
	}

	item, err := h.mgr.CloseRound(r.Context(), roomID, r.PathValue("roundId"))
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, item)
}

// FinishRoom handles POST /rooms/{id}/finish
func (h *VotingHandler) FinishRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if !h.authorizeLeader(w, r, roomID) {
		return
	}

	room, err := h.mgr.MarkNoMoreTopics(r.Context(), roomID)
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, room)
}

// SetObserver handles POST /rooms/{roomId}/users/{userId}/observer.
// Other processes call it, so every failure is a 500 with
// {"success": false, "error": ...}.
func (h *VotingHandler) SetObserver(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	userID := r.PathValue("userId")

	var req models.ObserverRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		observerFailure(w, "invalid JSON body")
		return
	}
	if req.IsObserver == nil {
		observerFailure(w, "isObserver is required")
		return
	}

	if err := h.mgr.SetObserverStatus(r.Context(), roomID, userID, *req.IsObserver); err != nil {
		slog.Warn("observer toggle failed", "room_id", roomID, "user_id", userID, "error", err)
		observerFailure(w, err.Error())
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.ObserverResponse{Success: true})
}

func observerFailure(w http.ResponseWriter, msg string) {
	middleware.JSONResponse(w, http.StatusInternalServerError, models.ObserverResponse{
		Success: false,
		Error:   msg,
	})
}
