// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/models"
	"github.com/danielhkuo/deliberating-room/rounds"
)

// Injected failures for FakeRemote
var (
	ErrRemoteDown   = apperr.New(apperr.Transient, "remote unreachable")
	ErrRemoteDenied = apperr.New(apperr.Permission, "permission denied for table rooms")
)

// FakeRemote is an in-memory remote store with injectable failures.
// It applies the same state machine as the Postgres backend.
type FakeRemote struct {
	mu       sync.Mutex
	rooms    map[string]*models.Room
	failAll  error
	roomErrs map[string]error
	calls    int
	imported []string
}

func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		rooms:    make(map[string]*models.Room),
		roomErrs: make(map[string]error),
	}
}

// FailAll makes every call return err until Heal
func (f *FakeRemote) FailAll(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = err
}

// FailRoom makes calls for one room return err until Heal
func (f *FakeRemote) FailRoom(roomID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roomErrs[roomID] = err
}

// Heal clears every injected failure
func (f *FakeRemote) Heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = nil
	f.roomErrs = make(map[string]error)
}

// Seed stores room directly
func (f *FakeRemote) Seed(room *models.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room.ID] = room.Clone()
}

// Delete drops a room as if it expired remotely
func (f *FakeRemote) Delete(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, roomID)
}

// Room returns a copy of the stored room, or nil
func (f *FakeRemote) Room(roomID string) *models.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[roomID].Clone()
}

// Calls counts every call that reached the fake
func (f *FakeRemote) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Imported lists room ids passed to Import, in order
func (f *FakeRemote) Imported() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.imported...)
}

func (f *FakeRemote) check(roomID string) error {
	f.calls++
	if f.failAll != nil {
		return f.failAll
	}
	return f.roomErrs[roomID]
}

func (f *FakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check("")
}

func (f *FakeRemote) CreateRoom(ctx context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(room.ID); err != nil {
		return err
	}
	if _, ok := f.rooms[room.ID]; ok {
		return apperr.New(apperr.Conflict, "room id already taken")
	}
	f.rooms[room.ID] = room.Clone()
	return nil
}

func (f *FakeRemote) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(roomID); err != nil {
		return nil, err
	}
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, rounds.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (f *FakeRemote) mutate(ctx context.Context, roomID string, fn func(*models.Room) error) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(roomID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.Transient, "fake")
	}
	stored, ok := f.rooms[roomID]
	if !ok {
		return nil, rounds.ErrRoomNotFound
	}
	room := stored.Clone()
	if err := fn(room); err != nil {
		return nil, err
	}
	f.rooms[roomID] = room
	return room.Clone(), nil
}

func (f *FakeRemote) JoinRoom(ctx context.Context, roomID string, user models.User) (*models.Room, error) {
	return f.mutate(ctx, roomID, func(r *models.Room) error {
		_, err := rounds.AddMember(r, user)
		return err
	})
}

func (f *FakeRemote) SetObserverStatus(ctx context.Context, roomID, userID string, isObserver bool) (*models.Room, error) {
	return f.mutate(ctx, roomID, func(r *models.Room) error {
		_, err := rounds.SetObserver(r, userID, isObserver)
		return err
	})
}

func (f *FakeRemote) CastVote(ctx context.Context, roomID, roundID, userID string, value float64) (*models.Room, error) {
	return f.mutate(ctx, roomID, func(r *models.Room) error {
		_, err := rounds.CastVote(r, roundID, userID, value)
		return err
	})
}

func (f *FakeRemote) CloseRound(ctx context.Context, roomID, roundID string, at time.Time) (*models.Room, error) {
	return f.mutate(ctx, roomID, func(r *models.Room) error {
		_, err := rounds.CloseRound(r, roundID, at)
		return err
	})
}

func (f *FakeRemote) StartRound(ctx context.Context, roomID, roundID, topic string, at time.Time) (*models.Room, error) {
	return f.mutate(ctx, roomID, func(r *models.Room) error {
		_, err := rounds.StartRound(r, roundID, topic, at)
		return err
	})
}

func (f *FakeRemote) MarkNoMoreTopics(ctx context.Context, roomID string) (*models.Room, error) {
	return f.mutate(ctx, roomID, func(r *models.Room) error {
		rounds.MarkNoMoreTopics(r)
		return nil
	})
}

func (f *FakeRemote) Import(ctx context.Context, room *models.Room) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(room.ID); err != nil {
		return nil, err
	}
	f.imported = append(f.imported, room.ID)
	merged := rounds.Merge(f.rooms[room.ID], room)
	f.rooms[room.ID] = merged
	return merged.Clone(), nil
}

func (f *FakeRemote) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.check(""); err != nil {
		return 0, err
	}
	var n int64
	for id, r := range f.rooms {
		if !r.ExpiresAt.After(now) {
			delete(f.rooms, id)
			n++
		}
	}
	return n, nil
}
