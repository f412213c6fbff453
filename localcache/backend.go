// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package localcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/models"
	"github.com/danielhkuo/deliberating-room/rounds"
)

// The methods below serve the room operations from the cache alone. Every
// write they make is flagged pending so reconciliation can replay it.

// CreateRoom stores a room the remote has never seen
func (c *Cache) CreateRoom(ctx context.Context, room *models.Room) error {
	payload, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.ID, err)
	}
	now := c.now()
	res, err := c.db.ExecContext(ctx, `
		INSERT INTO room_snapshot (room_id, payload, pending, local_only, updated_at, expires_at)
		VALUES (?, ?, 1, 1, ?, ?)
		ON CONFLICT (room_id) DO NOTHING
	`, room.ID, string(payload), now.UnixMilli(), c.expiry(room).UnixMilli())
	if err != nil {
		return apperr.Wrap(err, apperr.Unknown, "localcache.CreateRoom")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomExists
	}
	return nil
}

// GetRoom returns the cached room
func (c *Cache) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	snap, err := c.Lookup(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return snap.Room, nil
}

func (c *Cache) JoinRoom(ctx context.Context, roomID string, user models.User) (*models.Room, error) {
	return c.mutate(ctx, "localcache.JoinRoom", roomID, func(room *models.Room) (bool, error) {
		return rounds.AddMember(room, user)
	})
}

func (c *Cache) SetObserverStatus(ctx context.Context, roomID, userID string, isObserver bool) (*models.Room, error) {
	return c.mutate(ctx, "localcache.SetObserverStatus", roomID, func(room *models.Room) (bool, error) {
		return rounds.SetObserver(room, userID, isObserver)
	})
}

func (c *Cache) CastVote(ctx context.Context, roomID, roundID, userID string, value float64) (*models.Room, error) {
	return c.mutate(ctx, "localcache.CastVote", roomID, func(room *models.Room) (bool, error) {
		return rounds.CastVote(room, roundID, userID, value)
	})
}

func (c *Cache) CloseRound(ctx context.Context, roomID, roundID string, at time.Time) (*models.Room, error) {
	return c.mutate(ctx, "localcache.CloseRound", roomID, func(room *models.Room) (bool, error) {
		_, err := rounds.CloseRound(room, roundID, at)
		return err == nil, err
	})
}

func (c *Cache) StartRound(ctx context.Context, roomID, roundID, topic string, at time.Time) (*models.Room, error) {
	return c.mutate(ctx, "localcache.StartRound", roomID, func(room *models.Room) (bool, error) {
		before := room.CurrentRound.ID
		if _, err := rounds.StartRound(room, roundID, topic, at); err != nil {
			return false, err
		}
		return room.CurrentRound.ID != before, nil
	})
}

func (c *Cache) MarkNoMoreTopics(ctx context.Context, roomID string) (*models.Room, error) {
	return c.mutate(ctx, "localcache.MarkNoMoreTopics", roomID, func(room *models.Room) (bool, error) {
		return rounds.MarkNoMoreTopics(room), nil
	})
}

// mutate loads, applies fn and writes back inside one transaction.
// Unchanged rooms are not rewritten and keep their sync flags.
func (c *Cache) mutate(ctx context.Context, op, roomID string, fn func(*models.Room) (bool, error)) (*models.Room, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, op)
	}
	defer tx.Rollback()

	snap, err := c.lookup(ctx, tx, roomID)
	if err != nil {
		return nil, err
	}

	changed, err := fn(snap.Room)
	if err != nil {
		return nil, err
	}
	if !changed {
		return snap.Room, nil
	}

	payload, err := json.Marshal(snap.Room)
	if err != nil {
		return nil, fmt.Errorf("encode room %s: %w", roomID, err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE room_snapshot
		SET payload = ?, pending = 1, updated_at = ?
		WHERE room_id = ?
	`, string(payload), c.now().UnixMilli(), roomID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, op)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(err, apperr.Unknown, op)
	}
	return snap.Room, nil
}
