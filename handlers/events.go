// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/deliberating-room/lifecycle"
	"github.com/danielhkuo/deliberating-room/middleware"
	"github.com/danielhkuo/deliberating-room/models"
	"github.com/danielhkuo/deliberating-room/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type EventsHandler struct {
	mgr      *lifecycle.Manager
	notifier *notify.Notifier
}

func NewEventsHandler(mgr *lifecycle.Manager, notifier *notify.Notifier) *EventsHandler {
	return &EventsHandler{mgr: mgr, notifier: notifier}
}

// Subscribe handles GET /rooms/{id}/events. Each change to the room sends
// {"type":"room_changed","room_id":...}; bursts collapse into one message.
func (h *EventsHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	room, err := h.mgr.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		middleware.AppError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		slog.Warn("websocket upgrade failed", "room_id", room.ID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	unsubscribe, err := h.notifier.Subscribe(ctx, room.ID, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		slog.Error("room subscription failed", "room_id", room.ID, "error", err)
		return
	}
	defer unsubscribe()

	slog.Info("events client connected", "room_id", room.ID, "mode", h.notifier.Mode())
	go readUntilClosed(conn, cancel)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	event := models.RoomEvent{Type: models.EventRoomChanged, RoomID: room.ID}
	for {
		select {
		case <-ctx.Done():
			slog.Info("events client disconnected", "room_id", room.ID)
			return
		case <-changed:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				slog.Warn("event write failed", "room_id", room.ID, "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readUntilClosed drains client frames so pongs and close frames are
// processed, and cancels once the connection goes away
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
