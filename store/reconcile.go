// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/localcache"
	"github.com/danielhkuo/deliberating-room/models"
)

// Reconcile pushes every snapshot holding offline writes to the remote and
// reports how many rooms were synced. It stops at the first transient
// failure since the remote is evidently still down.
func (s *RoomStore) Reconcile(ctx context.Context) (int, error) {
	if s.remote == nil {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snaps, err := s.local.Pending(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, snap := range snaps {
		if _, err := s.importLocked(ctx, snap); err != nil {
			if apperr.Is(err, apperr.Transient) {
				return synced, err
			}
			slog.Warn("room reconciliation failed", "room_id", snap.Room.ID, "error", err)
			continue
		}
		synced++
	}
	if synced > 0 {
		slog.Info("reconciled offline writes", "rooms", synced)
	}
	return synced, nil
}

// importLocked merges one snapshot into the remote and caches the result
// as clean. Callers hold s.mu.
func (s *RoomStore) importLocked(ctx context.Context, snap *localcache.Snapshot) (*models.Room, error) {
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	merged, err := s.remote.Import(rctx, snap.Room)
	cancel()
	if err != nil {
		return nil, err
	}
	if err := s.local.Put(ctx, merged); err != nil {
		slog.Warn("failed to cache reconciled room", "room_id", merged.ID, "error", err)
	}
	slog.Info("room reconciled", "room_id", merged.ID, "local_only", snap.LocalOnly)
	return merged, nil
}

// PurgeLocal drops expired snapshots from the cache
func (s *RoomStore) PurgeLocal(ctx context.Context) (int64, error) {
	return s.local.PurgeExpired(ctx)
}

// PurgeRemote drops expired rooms from the remote store
func (s *RoomStore) PurgeRemote(ctx context.Context) (int64, error) {
	if s.remote == nil {
		return 0, ErrNoRemote
	}
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.remote.PurgeExpired(rctx, s.now())
}

// PingRemote checks the remote store within the call timeout
func (s *RoomStore) PingRemote(ctx context.Context) error {
	if s.remote == nil {
		return ErrNoRemote
	}
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.remote.Ping(rctx)
}

// PingLocal checks the cache
func (s *RoomStore) PingLocal(ctx context.Context) error {
	return s.local.Ping(ctx)
}
