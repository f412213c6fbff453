// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/deliberating-room/lifecycle"
	"github.com/danielhkuo/deliberating-room/middleware"
)

type AdminHandler struct {
	mgr *lifecycle.Manager
}

func NewAdminHandler(mgr *lifecycle.Manager) *AdminHandler {
	return &AdminHandler{mgr: mgr}
}

// Cleanup handles POST /cleanup
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	resp, err := h.mgr.Cleanup(r.Context())
	if err != nil {
		middleware.AppError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}
