// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/deliberating-room/lifecycle"
	"github.com/danielhkuo/deliberating-room/middleware"
	"github.com/danielhkuo/deliberating-room/models"
)

type RoomHandler struct {
	mgr *lifecycle.Manager
}

func NewRoomHandler(mgr *lifecycle.Manager) *RoomHandler {
	return &RoomHandler{mgr: mgr}
}

// CreateRoom handles POST /rooms
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp, err := h.mgr.CreateRoom(r.Context(), middleware.DeviceID(r), req)
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// CheckRoom handles GET /rooms/check?id=
func (h *RoomHandler) CheckRoom(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("id")
	if roomID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	resp, err := h.mgr.CheckRoom(r.Context(), roomID)
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetRoom handles GET /rooms/{id}
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.mgr.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, room)
}

// GetStatus handles GET /rooms/{id}/status
func (h *RoomHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.mgr.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, status)
}

// JoinRoom handles POST /rooms/{id}/join
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req models.JoinRoomRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp, err := h.mgr.JoinRoom(r.Context(), middleware.DeviceID(r), r.PathValue("id"), req.Name)
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	status := http.StatusOK
	if resp.IsNewUser {
		status = http.StatusCreated
	}
	middleware.JSONResponse(w, status, resp)
}

// GetMe handles GET /rooms/{id}/me
func (h *RoomHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.DeviceID(r)
	if deviceID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, middleware.HeaderDeviceID+" header is required")
		return
	}

	user, err := h.mgr.ResolveMember(r.Context(), deviceID, r.PathValue("id"))
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, user)
}

// Diagnostics handles GET /rooms/{id}/diagnostics
func (h *RoomHandler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	d := h.mgr.Diagnose(r.Context(), middleware.DeviceID(r), r.PathValue("id"))
	middleware.JSONResponse(w, http.StatusOK, d)
}
