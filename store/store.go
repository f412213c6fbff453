// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/localcache"
	"github.com/danielhkuo/deliberating-room/models"
	"github.com/danielhkuo/deliberating-room/rounds"
)

// ErrNoRemote is returned by remote-only calls in local-only mode
var ErrNoRemote = apperr.New(apperr.Transient, "remote store not configured")

// Backend is the set of room operations both stores serve
type Backend interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	JoinRoom(ctx context.Context, roomID string, user models.User) (*models.Room, error)
	SetObserverStatus(ctx context.Context, roomID, userID string, isObserver bool) (*models.Room, error)
	CastVote(ctx context.Context, roomID, roundID, userID string, value float64) (*models.Room, error)
	CloseRound(ctx context.Context, roomID, roundID string, at time.Time) (*models.Room, error)
	StartRound(ctx context.Context, roomID, roundID, topic string, at time.Time) (*models.Room, error)
	MarkNoMoreTopics(ctx context.Context, roomID string) (*models.Room, error)
}

// Remote is the shared store; remote.Store implements it
type Remote interface {
	Backend
	Import(ctx context.Context, room *models.Room) (*models.Room, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

var _ Backend = (*localcache.Cache)(nil)

// RoomStore serves every room operation from the remote store when it can
// and from the local cache when the remote is unavailable.
type RoomStore struct {
	remote  Remote
	local   *localcache.Cache
	timeout time.Duration
	publish func(roomID string)
	now     func() time.Time

	// serializes local writes that depend on the snapshot's sync flags
	mu sync.Mutex
}

type Option func(*RoomStore)

// WithPublisher is called with the room id after a write served locally,
// since no remote change event will announce it.
func WithPublisher(fn func(roomID string)) Option {
	return func(s *RoomStore) { s.publish = fn }
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(s *RoomStore) { s.now = now }
}

// New builds a store. A nil remote runs local-only.
func New(remote Remote, local *localcache.Cache, timeout time.Duration, opts ...Option) *RoomStore {
	s := &RoomStore{
		remote:  remote,
		local:   local,
		timeout: timeout,
		publish: func(string) {},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LocalOnly reports whether the store runs without a remote
func (s *RoomStore) LocalOnly() bool {
	return s.remote == nil
}

func (s *RoomStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if s.remote == nil {
		return s.createLocal(ctx, room)
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.remote.CreateRoom(rctx, room)
	cancel()
	if err == nil {
		if perr := s.local.Put(ctx, room); perr != nil {
			slog.Warn("failed to cache new room", "room_id", room.ID, "error", perr)
		}
		return nil
	}
	if !retryLocally(err) {
		return err
	}

	slog.Warn("remote store failed, creating room locally", "room_id", room.ID, "error", err)
	if lerr := s.createLocal(ctx, room); lerr != nil {
		slog.Error("local create failed", "room_id", room.ID, "error", lerr)
		return err
	}
	return nil
}

func (s *RoomStore) createLocal(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.local.CreateRoom(ctx, room); err != nil {
		return err
	}
	s.publish(room.ID)
	return nil
}

// GetRoom returns the full aggregate. It fails with rounds.ErrRoomNotFound
// only when the room exists in neither store.
func (s *RoomStore) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return s.run(ctx, "GetRoom", roomID, false, func(ctx context.Context, b Backend) (*models.Room, error) {
		return b.GetRoom(ctx, roomID)
	})
}

func (s *RoomStore) JoinRoom(ctx context.Context, roomID string, user models.User) (*models.Room, error) {
	return s.run(ctx, "JoinRoom", roomID, true, func(ctx context.Context, b Backend) (*models.Room, error) {
		return b.JoinRoom(ctx, roomID, user)
	})
}

func (s *RoomStore) SetObserverStatus(ctx context.Context, roomID, userID string, isObserver bool) (*models.Room, error) {
	return s.run(ctx, "SetObserverStatus", roomID, true, func(ctx context.Context, b Backend) (*models.Room, error) {
		return b.SetObserverStatus(ctx, roomID, userID, isObserver)
	})
}

func (s *RoomStore) CastVote(ctx context.Context, roomID, roundID, userID string, value float64) (*models.Room, error) {
	return s.run(ctx, "CastVote", roomID, true, func(ctx context.Context, b Backend) (*models.Room, error) {
		return b.CastVote(ctx, roomID, roundID, userID, value)
	})
}

// CloseRound closes roundID and returns its frozen history item
func (s *RoomStore) CloseRound(ctx context.Context, roomID, roundID string) (*models.RoundHistoryItem, error) {
	at := s.now()
	room, err := s.run(ctx, "CloseRound", roomID, true, func(ctx context.Context, b Backend) (*models.Room, error) {
		return b.CloseRound(ctx, roomID, roundID, at)
	})
	if err != nil {
		return nil, err
	}
	for i := range room.History {
		if room.History[i].ID == roundID {
			return &room.History[i], nil
		}
	}
	return nil, rounds.ErrRoundNotFound
}

// StartRound opens a new round. The id is allocated here so a retry
// against either store lands on the same round.
func (s *RoomStore) StartRound(ctx context.Context, roomID, topic string) (*models.Round, error) {
	roundID := uuid.NewString()
	at := s.now()
	room, err := s.run(ctx, "StartRound", roomID, true, func(ctx context.Context, b Backend) (*models.Room, error) {
		return b.StartRound(ctx, roomID, roundID, topic, at)
	})
	if err != nil {
		return nil, err
	}
	round := room.CurrentRound
	return &round, nil
}

func (s *RoomStore) MarkNoMoreTopics(ctx context.Context, roomID string) (*models.Room, error) {
	return s.run(ctx, "MarkNoMoreTopics", roomID, true, func(ctx context.Context, b Backend) (*models.Room, error) {
		return b.MarkNoMoreTopics(ctx, roomID)
	})
}

// run is the one try-remote-then-local path every room operation takes.
// A write first pushes any offline writes the cache still holds for the
// room, so the remote sees the same state the caller has been served.
func (s *RoomStore) run(ctx context.Context, op, roomID string, write bool, call func(context.Context, Backend) (*models.Room, error)) (*models.Room, error) {
	if s.remote == nil {
		return s.runLocal(ctx, roomID, write, call)
	}

	if write {
		if err := s.flushPending(ctx, roomID); err != nil {
			if !retryLocally(err) {
				return nil, err
			}
			return s.fallback(ctx, op, roomID, write, call, err)
		}
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	room, err := call(rctx, s.remote)
	cancel()
	if err == nil {
		return s.writeThrough(ctx, room), nil
	}
	if !s.shouldFallback(ctx, roomID, err) {
		return nil, err
	}
	return s.fallback(ctx, op, roomID, write, call, err)
}

func (s *RoomStore) fallback(ctx context.Context, op, roomID string, write bool, call func(context.Context, Backend) (*models.Room, error), remoteErr error) (*models.Room, error) {
	slog.Warn("remote store failed, using local cache", "op", op, "room_id", roomID, "error", remoteErr)
	room, lerr := s.runLocal(ctx, roomID, write, call)
	if lerr != nil {
		return nil, fallbackError(op, roomID, remoteErr, lerr)
	}
	return room, nil
}

// flushPending imports the cached snapshot of roomID when it holds offline
// writes. A room with no snapshot, or a clean one, needs nothing.
func (s *RoomStore) flushPending(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.local.Lookup(ctx, roomID)
	if err != nil || !snap.Pending {
		return nil
	}
	if _, err := s.importLocked(ctx, snap); err != nil {
		return fmt.Errorf("reconcile %s before write: %w", roomID, err)
	}
	return nil
}

func (s *RoomStore) runLocal(ctx context.Context, roomID string, write bool, call func(context.Context, Backend) (*models.Room, error)) (*models.Room, error) {
	if !write {
		return call(ctx, s.local)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	room, err := call(ctx, s.local)
	if err != nil {
		return nil, err
	}
	s.publish(roomID)
	return room, nil
}

// retryLocally reports whether a remote failure is one the cache may absorb
func retryLocally(err error) bool {
	switch apperr.KindOf(err) {
	case apperr.Transient, apperr.Unknown:
		return true
	}
	return false
}

// shouldFallback decides whether the cache may answer after err. A missing
// room is authoritative unless the cache created it while the remote was
// down; in that case the stale copy is dropped.
func (s *RoomStore) shouldFallback(ctx context.Context, roomID string, err error) bool {
	if retryLocally(err) {
		return true
	}
	if !errors.Is(err, rounds.ErrRoomNotFound) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap, lerr := s.local.Lookup(ctx, roomID)
	if lerr != nil {
		return false
	}
	if snap.LocalOnly {
		return true
	}
	if err := s.local.Evict(ctx, roomID); err != nil {
		slog.Warn("failed to evict stale snapshot", "room_id", roomID, "error", err)
	} else {
		slog.Info("evicted snapshot of room missing remotely", "room_id", roomID)
	}
	return false
}

// fallbackError picks what to surface when both stores failed. Domain
// errors from the cache are real answers; anything else means the cache
// could not help and the remote error is the honest one.
func fallbackError(op, roomID string, remoteErr, localErr error) error {
	if errors.Is(localErr, rounds.ErrRoomNotFound) {
		return remoteErr
	}
	switch apperr.KindOf(localErr) {
	case apperr.Conflict, apperr.Validation, apperr.NotFound:
		return localErr
	}
	slog.Error("local cache failed after remote failure", "op", op, "room_id", roomID, "error", localErr)
	return remoteErr
}

// writeThrough refreshes the cache with remote state. A snapshot still
// holding offline writes is merged into the remote first.
func (s *RoomStore) writeThrough(ctx context.Context, room *models.Room) *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.local.Lookup(ctx, room.ID)
	if err == nil && snap.Pending {
		merged, rerr := s.importLocked(ctx, snap)
		if rerr == nil {
			return merged
		}
		slog.Warn("reconcile on read failed, keeping local copy", "room_id", room.ID, "error", rerr)
		return room
	}

	if err := s.local.Put(ctx, room); err != nil {
		slog.Warn("failed to refresh cached room", "room_id", room.ID, "error", err)
	}
	return room
}
