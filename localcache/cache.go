// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package localcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/models"
	"github.com/danielhkuo/deliberating-room/rounds"
)

var ErrRoomExists = apperr.New(apperr.Conflict, "room already cached")

// Snapshot is a cached room plus its sync state
type Snapshot struct {
	Room *models.Room
	// Pending is set when the snapshot holds writes the remote has not seen
	Pending bool
	// LocalOnly is set when the room was created while the remote was down
	LocalOnly bool
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// Cache stores one JSON room per row in SQLite
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// New wraps an open SQLite handle whose schema already exists
func New(db *sql.DB, ttl time.Duration) *Cache {
	return &Cache{db: db, ttl: ttl, now: time.Now}
}

// SetClock replaces the time source
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Ping checks that the cache file can be queried
func (c *Cache) Ping(ctx context.Context) error {
	var one int
	if err := c.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return apperr.Wrap(err, apperr.Unknown, "localcache.Ping")
	}
	return nil
}

// Put stores room as a clean copy of remote state
func (c *Cache) Put(ctx context.Context, room *models.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.ID, err)
	}
	now := c.now()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO room_snapshot (room_id, payload, pending, local_only, updated_at, expires_at)
		VALUES (?, ?, 0, 0, ?, ?)
		ON CONFLICT (room_id) DO UPDATE SET
			payload = excluded.payload,
			pending = 0,
			local_only = 0,
			updated_at = excluded.updated_at
	`, room.ID, string(payload), now.UnixMilli(), c.expiry(room).UnixMilli())
	if err != nil {
		return apperr.Wrap(err, apperr.Unknown, "localcache.Put")
	}
	return nil
}

// Lookup returns the unexpired snapshot for roomID
func (c *Cache) Lookup(ctx context.Context, roomID string) (*Snapshot, error) {
	return c.lookup(ctx, c.db, roomID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *Cache) lookup(ctx context.Context, q queryer, roomID string) (*Snapshot, error) {
	var (
		payload            string
		pending, localOnly bool
		updated, expires   int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT payload, pending, local_only, updated_at, expires_at
		FROM room_snapshot
		WHERE room_id = ? AND expires_at > ?
	`, roomID, c.now().UnixMilli()).Scan(&payload, &pending, &localOnly, &updated, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rounds.ErrRoomNotFound
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, "localcache.Lookup")
	}

	var room models.Room
	if err := json.Unmarshal([]byte(payload), &room); err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, "localcache.Lookup")
	}
	return &Snapshot{
		Room:      &room,
		Pending:   pending,
		LocalOnly: localOnly,
		UpdatedAt: time.UnixMilli(updated),
		ExpiresAt: time.UnixMilli(expires),
	}, nil
}

// Evict drops the snapshot for roomID if present
func (c *Cache) Evict(ctx context.Context, roomID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM room_snapshot WHERE room_id = ?`, roomID); err != nil {
		return apperr.Wrap(err, apperr.Unknown, "localcache.Evict")
	}
	return nil
}

// Pending lists unexpired snapshots holding writes the remote has not seen
func (c *Cache) Pending(ctx context.Context) ([]*Snapshot, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT room_id FROM room_snapshot
		WHERE pending = 1 AND expires_at > ?
		ORDER BY updated_at
	`, c.now().UnixMilli())
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, "localcache.Pending")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, apperr.Wrap(err, apperr.Unknown, "localcache.Pending")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, "localcache.Pending")
	}

	snaps := make([]*Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := c.Lookup(ctx, id)
		if err != nil {
			if errors.Is(err, rounds.ErrRoomNotFound) {
				continue
			}
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// PurgeExpired deletes snapshots past their expiry and reports how many went
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM room_snapshot WHERE expires_at <= ?`, c.now().UnixMilli())
	if err != nil {
		return 0, apperr.Wrap(err, apperr.Unknown, "localcache.PurgeExpired")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("purged expired room snapshots", "count", n)
	}
	return n, nil
}

func (c *Cache) expiry(room *models.Room) time.Time {
	if !room.ExpiresAt.IsZero() {
		return room.ExpiresAt
	}
	return c.now().Add(c.ttl)
}
