// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sessions

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/deliberating-room/apperr"
)

const (
	kindActor   = "actor"
	kindCreator = "creator"
)

// Store keeps device-to-user associations in the local SQLite file
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// New wraps an open SQLite handle whose schema already exists
func New(db *sql.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// SetClock replaces the time source
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Device returns the identity view for one device id
func (s *Store) Device(deviceID string) *Identity {
	return &Identity{store: s, deviceID: deviceID}
}

// ExpireAll deletes every record past its TTL
func (s *Store) ExpireAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_record WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, apperr.Wrap(err, apperr.Unknown, "sessions.ExpireAll")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("expired session records", "count", n)
	}
	return n, nil
}

// Identity is what one device remembers about the rooms it has joined.
// An identity with no device id remembers nothing.
type Identity struct {
	store    *Store
	deviceID string
}

// RememberActor records userID as this device's member in roomID
func (i *Identity) RememberActor(ctx context.Context, roomID, userID string) error {
	return i.put(ctx, roomID, kindActor, userID)
}

// ResolveActor returns the member id this device acts as in roomID
func (i *Identity) ResolveActor(ctx context.Context, roomID string) (string, bool, error) {
	if i.deviceID == "" {
		return "", false, nil
	}
	userID, err := i.get(ctx, roomID, kindActor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Wrap(err, apperr.Unknown, "sessions.ResolveActor")
	}
	return userID, true, nil
}

// ForgetActor drops the actor record so the device joins afresh
func (i *Identity) ForgetActor(ctx context.Context, roomID string) error {
	_, err := i.store.db.ExecContext(ctx, `
		DELETE FROM session_record WHERE device_id = ? AND room_id = ? AND kind = ?
	`, i.deviceID, roomID, kindActor)
	if err != nil {
		return apperr.Wrap(err, apperr.Unknown, "sessions.ForgetActor")
	}
	return nil
}

// MarkCreator records that this device created roomID as userID
func (i *Identity) MarkCreator(ctx context.Context, roomID, userID string) error {
	return i.put(ctx, roomID, kindCreator, userID)
}

// IsCreator reports whether this device created roomID as userID.
// Any lookup failure reports false.
func (i *Identity) IsCreator(ctx context.Context, roomID, userID string) bool {
	if i.deviceID == "" || userID == "" {
		return false
	}
	got, err := i.get(ctx, roomID, kindCreator)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("creator lookup failed", "room_id", roomID, "error", err)
		}
		return false
	}
	return got == userID
}

func (i *Identity) put(ctx context.Context, roomID, kind, userID string) error {
	if i.deviceID == "" {
		return nil
	}
	now := i.store.now()
	_, err := i.store.db.ExecContext(ctx, `
		INSERT INTO session_record (device_id, room_id, kind, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (device_id, room_id, kind) DO UPDATE SET
			user_id = excluded.user_id,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, i.deviceID, roomID, kind, userID, now.UnixMilli(), now.Add(i.store.ttl).UnixMilli())
	if err != nil {
		return apperr.Wrap(err, apperr.Unknown, "sessions."+kind)
	}
	return nil
}

func (i *Identity) get(ctx context.Context, roomID, kind string) (string, error) {
	var userID string
	err := i.store.db.QueryRowContext(ctx, `
		SELECT user_id FROM session_record
		WHERE device_id = ? AND room_id = ? AND kind = ? AND expires_at > ?
	`, i.deviceID, roomID, kind, i.store.now().UnixMilli()).Scan(&userID)
	return userID, err
}
