// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/auth"
	"github.com/danielhkuo/deliberating-room/cliparse"
	"github.com/danielhkuo/deliberating-room/models"
	"github.com/danielhkuo/deliberating-room/rounds"
	"github.com/danielhkuo/deliberating-room/sessions"
	"github.com/danielhkuo/deliberating-room/store"
)

// reintegrationAttempts bounds how often a remembered member is looked up
// before the identity is given up
const reintegrationAttempts = 3

var (
	ErrNotMember      = apperr.New(apperr.NotFound, "device has no member in this room")
	ErrIdentityLost   = apperr.New(apperr.NotFound, "remembered member is no longer in the room, join again")
	ErrLeaderRequired = apperr.New(apperr.Permission, "leader key or creator device required")
)

// Manager runs the room-level workflows on top of the store
type Manager struct {
	store      *store.RoomStore
	sessions   *sessions.Store
	names      func() string
	salt       string
	maxTopics  int
	ttl        time.Duration
	now        func() time.Time
	retryDelay time.Duration
}

type Option func(*Manager)

// WithNames sets the default topic generator
func WithNames(fn func() string) Option {
	return func(m *Manager) { m.names = fn }
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRetryDelay sets the pause between reintegration lookups
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) { m.retryDelay = d }
}

func New(st *store.RoomStore, ids *sessions.Store, cfg cliparse.Config, opts ...Option) *Manager {
	m := &Manager{
		store:      st,
		sessions:   ids,
		names:      func() string { return "Untitled topic" },
		salt:       cfg.LeaderKeySalt,
		maxTopics:  cfg.MaxTopics,
		ttl:        cfg.SessionTTL,
		now:        time.Now,
		retryDelay: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateRoom allocates a room code, a leader and a first round, stores the
// room and remembers the device as its leader and creator.
func (m *Manager) CreateRoom(ctx context.Context, deviceID string, req models.CreateRoomRequest) (*models.CreateRoomResponse, error) {
	roomID, err := auth.GenerateRoomCode()
	if err != nil {
		return nil, err
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		if sessionID, err = auth.GenerateID(8); err != nil {
			return nil, err
		}
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = m.names()
	}

	room, err := rounds.NewRoom(rounds.NewRoomParams{
		RoomID:     roomID,
		Title:      req.Title,
		StoryLink:  req.StoryLink,
		LeaderID:   uuid.NewString(),
		LeaderName: req.LeaderName,
		RoundID:    uuid.NewString(),
		Topic:      topic,
		MaxTopics:  m.maxTopics,
		SessionID:  sessionID,
		CreatedAt:  m.now(),
		TTL:        m.ttl,
	})
	if err != nil {
		return nil, err
	}
	if err := m.store.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	dev := m.sessions.Device(deviceID)
	if err := dev.RememberActor(ctx, roomID, room.LeaderID); err != nil {
		slog.Warn("failed to remember leader", "room_id", roomID, "error", err)
	}
	if err := dev.MarkCreator(ctx, roomID, room.LeaderID); err != nil {
		slog.Warn("failed to mark creator", "room_id", roomID, "error", err)
	}

	slog.Info("room created", "room_id", roomID, "leader_id", room.LeaderID)
	return &models.CreateRoomResponse{
		RoomID:    roomID,
		UserID:    room.LeaderID,
		LeaderKey: auth.GenerateLeaderKey(roomID, m.salt),
	}, nil
}

// JoinRoom adds a member named name. A device that already acts as a
// member of the room gets that member back instead of a second one.
func (m *Manager) JoinRoom(ctx context.Context, deviceID, roomID, name string) (*models.JoinRoomResponse, error) {
	roomID, err := auth.NormalizeRoomCode(roomID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, rounds.ErrNameRequired
	}
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	dev := m.sessions.Device(deviceID)
	if userID, ok, err := dev.ResolveActor(ctx, roomID); err != nil {
		slog.Warn("actor lookup failed", "room_id", roomID, "error", err)
	} else if ok {
		if room.User(userID) != nil {
			return &models.JoinRoomResponse{UserID: userID, RoomID: roomID, IsNewUser: false}, nil
		}
		if _, err := m.reintegrate(ctx, dev, roomID, userID); err == nil {
			return &models.JoinRoomResponse{UserID: userID, RoomID: roomID, IsNewUser: false}, nil
		} else if !errors.Is(err, ErrIdentityLost) {
			return nil, err
		}
	}

	userID := uuid.NewString()
	if _, err := m.store.JoinRoom(ctx, roomID, models.User{ID: userID, Name: name}); err != nil {
		return nil, fmt.Errorf("join room: %w", err)
	}
	if err := dev.RememberActor(ctx, roomID, userID); err != nil {
		slog.Warn("failed to remember member", "room_id", roomID, "error", err)
	}

	slog.Info("member joined", "room_id", roomID, "user_id", userID)
	return &models.JoinRoomResponse{UserID: userID, RoomID: roomID, IsNewUser: true}, nil
}

// ResolveMember returns the member this device acts as in roomID
func (m *Manager) ResolveMember(ctx context.Context, deviceID, roomID string) (*models.User, error) {
	roomID, err := auth.NormalizeRoomCode(roomID)
	if err != nil {
		return nil, err
	}
	dev := m.sessions.Device(deviceID)
	userID, ok, err := dev.ResolveActor(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}
	return m.reintegrate(ctx, dev, roomID, userID)
}

// reintegrate looks the remembered member up a bounded number of times.
// When it never shows up the device forgets it.
func (m *Manager) reintegrate(ctx context.Context, dev *sessions.Identity, roomID, userID string) (*models.User, error) {
	for attempt := 1; attempt <= reintegrationAttempts; attempt++ {
		room, err := m.store.GetRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if u := room.User(userID); u != nil {
			user := *u
			return &user, nil
		}
		if attempt == reintegrationAttempts {
			break
		}
		slog.Info("remembered member missing, retrying", "room_id", roomID, "user_id", userID, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(ctx.Err(), apperr.Transient, "lifecycle.reintegrate")
		case <-time.After(m.retryDelay * time.Duration(attempt)):
		}
	}

	if err := dev.ForgetActor(ctx, roomID); err != nil {
		slog.Warn("failed to forget lost member", "room_id", roomID, "error", err)
	}
	slog.Warn("remembered member is gone from room", "room_id", roomID, "user_id", userID)
	return nil, ErrIdentityLost
}

func (m *Manager) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	roomID, err := auth.NormalizeRoomCode(roomID)
	if err != nil {
		return nil, err
	}
	return m.store.GetRoom(ctx, roomID)
}

// CheckRoom reports whether a room exists. Only a definite not-found
// answers false; other failures are returned.
func (m *Manager) CheckRoom(ctx context.Context, roomID string) (*models.RoomCheckResponse, error) {
	room, err := m.GetRoom(ctx, roomID)
	if errors.Is(err, rounds.ErrRoomNotFound) || errors.Is(err, auth.ErrInvalidRoomCode) {
		return &models.RoomCheckResponse{Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}
	title := room.Title
	return &models.RoomCheckResponse{Exists: true, Title: &title}, nil
}

// Status summarizes a room for lobby screens
func (m *Manager) Status(ctx context.Context, roomID string) (*models.RoomStatusResponse, error) {
	room, err := m.GetRoom(ctx, roomID)
	if errors.Is(err, rounds.ErrRoomNotFound) {
		return &models.RoomStatusResponse{Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}

	status := &models.RoomStatusResponse{
		Exists:            true,
		Title:             room.Title,
		UserCount:         len(room.Users),
		CurrentRoundOpen:  room.CurrentRound.IsOpen,
		CurrentRoundTopic: room.CurrentRound.Topic,
		HasHistory:        len(room.History) > 0,
		HasMoreTopics:     room.HasMoreTopics,
	}
	if !room.ExpiresAt.IsZero() {
		status.ExpiresIn = humanize.RelTime(room.ExpiresAt, m.now(), "ago", "from now")
	}
	return status, nil
}

// CastVote records a vote from userID
func (m *Manager) CastVote(ctx context.Context, roomID string, req models.CastVoteRequest) (*models.Room, error) {
	roomID, err := auth.NormalizeRoomCode(roomID)
	if err != nil {
		return nil, err
	}
	if err := rounds.ValidateVote(req.Value); err != nil {
		return nil, err
	}
	return m.store.CastVote(ctx, roomID, req.RoundID, req.UserID, req.Value)
}

// CloseRound closes roundID and returns its result
func (m *Manager) CloseRound(ctx context.Context, roomID, roundID string) (*models.RoundHistoryItem, error) {
	roomID, err := auth.NormalizeRoomCode(roomID)
	if err != nil {
		return nil, err
	}
	item, err := m.store.CloseRound(ctx, roomID, roundID)
	if err != nil {
		return nil, err
	}
	slog.Info("round closed", "room_id", roomID, "round_id", roundID,
		"average", item.Result.Average, "total_votes", item.Result.TotalVotes)
	return item, nil
}

// StartRound opens the next round. A blank topic gets a generated name.
func (m *Manager) StartRound(ctx context.Context, roomID, topic string) (*models.StartRoundResponse, error) {
	roomID, err := auth.NormalizeRoomCode(roomID)
	if err != nil {
		return nil, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = m.names()
	}
	round, err := m.store.StartRound(ctx, roomID, topic)
	if err != nil {
		return nil, err
	}
	slog.Info("round started", "room_id", roomID, "round_id", round.ID, "topic_number", round.TopicNumber)
	return &models.StartRoundResponse{
		RoundID:     round.ID,
		Topic:       round.Topic,
		TopicNumber: round.TopicNumber,
	}, nil
}

func (m *Manager) SetObserverStatus(ctx context.Context, roomID, userID string, isObserver bool) error {
	roomID, err := auth.NormalizeRoomCode(roomID)
	if err != nil {
		return err
	}
	_, err = m.store.SetObserverStatus(ctx, roomID, userID, isObserver)
	return err
}

// MarkNoMoreTopics records that the session has no further topics
func (m *Manager) MarkNoMoreTopics(ctx context.Context, roomID string) (*models.Room, error) {
	roomID, err := auth.NormalizeRoomCode(roomID)
	if err != nil {
		return nil, err
	}
	return m.store.MarkNoMoreTopics(ctx, roomID)
}

// AuthorizeLeader accepts a valid leader key, or no key from the device
// that created the room.
func (m *Manager) AuthorizeLeader(ctx context.Context, deviceID, roomID, leaderKey string) error {
	roomID, err := auth.NormalizeRoomCode(roomID)
	if err != nil {
		return err
	}
	if leaderKey != "" {
		return auth.ValidateLeaderKey(roomID, leaderKey, m.salt)
	}
	if deviceID == "" {
		return ErrLeaderRequired
	}
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !m.sessions.Device(deviceID).IsCreator(ctx, roomID, room.LeaderID) {
		return ErrLeaderRequired
	}
	return nil
}

// Cleanup purges expired rooms from both stores and expired session
// records. A remote purge failure is logged and counted as zero.
func (m *Manager) Cleanup(ctx context.Context) (*models.CleanupResponse, error) {
	localN, err := m.store.PurgeLocal(ctx)
	if err != nil {
		return nil, err
	}
	remoteN, err := m.store.PurgeRemote(ctx)
	if err != nil && !errors.Is(err, store.ErrNoRemote) {
		slog.Warn("remote purge failed", "error", err)
	}
	sessionN, err := m.sessions.ExpireAll(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("cleanup finished", "remote_rooms", remoteN, "cached_rooms", localN, "session_records", sessionN)
	return &models.CleanupResponse{
		Success:        true,
		RemoteRooms:    int(remoteN),
		CachedRooms:    int(localN),
		SessionRecords: int(sessionN),
	}, nil
}

// Diagnose reports which part of the path to a room is failing
func (m *Manager) Diagnose(ctx context.Context, deviceID, roomID string) *models.Diagnostics {
	d := &models.Diagnostics{Details: map[string]string{}}

	if err := m.store.PingLocal(ctx); err != nil {
		d.Details["local_cache"] = err.Error()
	} else {
		d.LocalCacheWorks = true
	}

	if err := m.store.PingRemote(ctx); err != nil {
		d.Details["remote"] = err.Error()
	} else {
		d.RemoteReachable = true
	}

	room, err := m.GetRoom(ctx, roomID)
	if err != nil {
		d.Details["room"] = err.Error()
	} else {
		d.RoomExists = true
	}

	userID, ok, err := m.sessions.Device(deviceID).ResolveActor(ctx, strings.ToUpper(strings.TrimSpace(roomID)))
	switch {
	case err != nil:
		d.Details["session"] = err.Error()
	case ok:
		d.UserID = &userID
		d.UserInRoom = room != nil && room.User(userID) != nil
	}
	return d
}
