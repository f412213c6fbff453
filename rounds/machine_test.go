// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rounds

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/models"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRoom(t *testing.T) *models.Room {
	t.Helper()
	room, err := NewRoom(NewRoomParams{
		RoomID:     "ABC123",
		Title:      "Sprint 12",
		LeaderID:   "u-ana",
		LeaderName: "Ana",
		RoundID:    "r-1",
		Topic:      "Backlog #1",
		CreatedAt:  epoch,
		TTL:        24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewRoom() error = %v", err)
	}
	for _, u := range []models.User{{ID: "u-beto", Name: "Beto"}, {ID: "u-cleo", Name: "Cleo"}} {
		if _, err := AddMember(room, u); err != nil {
			t.Fatalf("AddMember(%s) error = %v", u.Name, err)
		}
	}
	return room
}

func TestNewRoom(t *testing.T) {
	room := newTestRoom(t)

	if room.CurrentTopicCount != 1 {
		t.Errorf("CurrentTopicCount = %d, want 1", room.CurrentTopicCount)
	}
	if room.MaxTopics != models.DefaultMaxTopics {
		t.Errorf("MaxTopics = %d, want %d", room.MaxTopics, models.DefaultMaxTopics)
	}
	if !room.CurrentRound.IsOpen || room.CurrentRound.TopicNumber != 1 {
		t.Errorf("first round = %+v, want open topic 1", room.CurrentRound)
	}
	if leader := room.Leader(); leader == nil || !leader.IsLeader || leader.Name != "Ana" {
		t.Errorf("Leader() = %+v", leader)
	}
	if !room.HasMoreTopics || !room.IsActive {
		t.Error("new room should be active with more topics expected")
	}
	if !room.ExpiresAt.Equal(epoch.Add(24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", room.ExpiresAt)
	}
}

func TestNewRoomValidation(t *testing.T) {
	tests := []struct {
		name string
		p    NewRoomParams
		want error
	}{
		{"no title", NewRoomParams{LeaderName: "Ana", Topic: "T"}, ErrTitleRequired},
		{"blank leader", NewRoomParams{Title: "S", LeaderName: "  ", Topic: "T"}, ErrNameRequired},
		{"no topic", NewRoomParams{Title: "S", LeaderName: "Ana"}, ErrTopicRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRoom(tt.p)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewRoom() error = %v, want %v", err, tt.want)
			}
			if !apperr.Is(err, apperr.Validation) {
				t.Errorf("kind = %q, want validation", apperr.KindOf(err))
			}
		})
	}
}

// Three members vote, the leader closes and opens the next topic.
func TestRoundScenario(t *testing.T) {
	room := newTestRoom(t)

	for _, v := range []struct {
		user  string
		value float64
	}{{"u-ana", 3}, {"u-beto", 5}, {"u-cleo", 8}} {
		applied, err := CastVote(room, "r-1", v.user, v.value)
		if err != nil || !applied {
			t.Fatalf("CastVote(%s) = %v, %v", v.user, applied, err)
		}
	}
	if !AllVoted(room) {
		t.Error("AllVoted() = false after everyone voted")
	}

	item, err := CloseRound(room, "r-1", epoch.Add(time.Minute))
	if err != nil {
		t.Fatalf("CloseRound() error = %v", err)
	}
	if math.Abs(item.Result.Average-16.0/3.0) > 1e-9 {
		t.Errorf("Average = %v, want 5.333...", item.Result.Average)
	}
	if !reflect.DeepEqual(item.Result.Mode, []float64{3, 5, 8}) {
		t.Errorf("Mode = %v, want [3 5 8]", item.Result.Mode)
	}
	if item.Result.TotalVotes != 3 {
		t.Errorf("TotalVotes = %d, want 3", item.Result.TotalVotes)
	}
	if room.CurrentRound.IsOpen || room.CurrentRound.Result == nil {
		t.Error("current round should be closed with a result")
	}
	if len(room.History) != 1 || room.History[0].ID != "r-1" {
		t.Fatalf("History = %+v", room.History)
	}

	round, err := StartRound(room, "r-2", "Backlog #2", epoch.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("StartRound() error = %v", err)
	}
	if round.TopicNumber != 2 || room.CurrentTopicCount != 2 {
		t.Errorf("TopicNumber = %d, CurrentTopicCount = %d, want 2, 2", round.TopicNumber, room.CurrentTopicCount)
	}
	if len(round.Votes) != 0 || !round.IsOpen {
		t.Errorf("new round = %+v, want open and empty", round)
	}
}

func TestCastVote(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(*models.Room)
		roundID     string
		userID      string
		value       float64
		wantApplied bool
		wantErr     error
	}{
		{"first vote", nil, "r-1", "u-beto", 5, true, nil},
		{"stale round ignored", nil, "r-0", "u-beto", 5, false, nil},
		{"closed round ignored", func(r *models.Room) { r.CurrentRound.IsOpen = false }, "r-1", "u-beto", 5, false, nil},
		{"same value is no change", func(r *models.Room) { r.CurrentRound.Votes["u-beto"] = 5 }, "r-1", "u-beto", 5, false, nil},
		{"overwrite", func(r *models.Room) { r.CurrentRound.Votes["u-beto"] = 3 }, "r-1", "u-beto", 13, true, nil},
		{"unknown user", nil, "r-1", "u-zed", 5, false, ErrUserNotFound},
		{"observer rejected", func(r *models.Room) { r.User("u-cleo").IsObserver = true }, "r-1", "u-cleo", 5, false, ErrObserverCannotVote},
		{"negative", nil, "r-1", "u-beto", -1, false, ErrInvalidVote},
		{"nan", nil, "r-1", "u-beto", math.NaN(), false, ErrInvalidVote},
		{"inf", nil, "r-1", "u-beto", math.Inf(1), false, ErrInvalidVote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := newTestRoom(t)
			if tt.setup != nil {
				tt.setup(room)
			}
			applied, err := CastVote(room, tt.roundID, tt.userID, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CastVote() error = %v, want %v", err, tt.wantErr)
			}
			if applied != tt.wantApplied {
				t.Errorf("CastVote() applied = %v, want %v", applied, tt.wantApplied)
			}
			if applied && room.CurrentRound.Votes[tt.userID] != tt.value {
				t.Errorf("stored vote = %v, want %v", room.CurrentRound.Votes[tt.userID], tt.value)
			}
		})
	}
}

func TestCastVoteClosedRoundLeavesVotesAlone(t *testing.T) {
	room := newTestRoom(t)
	CastVote(room, "r-1", "u-ana", 3)
	if _, err := CloseRound(room, "r-1", epoch); err != nil {
		t.Fatalf("CloseRound() error = %v", err)
	}
	before := room.History[0].Votes["u-ana"]
	applied, err := CastVote(room, "r-1", "u-ana", 21)
	if err != nil || applied {
		t.Fatalf("CastVote() on closed round = %v, %v", applied, err)
	}
	if room.CurrentRound.Votes["u-ana"] != before || room.History[0].Votes["u-ana"] != before {
		t.Error("vote on closed round changed stored state")
	}
}

func TestAllVotedIgnoresObservers(t *testing.T) {
	room := newTestRoom(t)
	room.User("u-cleo").IsObserver = true
	CastVote(room, "r-1", "u-ana", 3)
	if AllVoted(room) {
		t.Error("AllVoted() = true with Beto missing")
	}
	CastVote(room, "r-1", "u-beto", 5)
	if !AllVoted(room) {
		t.Error("AllVoted() = false, observer should not count")
	}

	for i := range room.Users {
		room.Users[i].IsObserver = true
	}
	if AllVoted(room) {
		t.Error("AllVoted() = true with no eligible voters")
	}
}

func TestCanClose(t *testing.T) {
	room := newTestRoom(t)
	if err := CanClose(room, "r-1"); !errors.Is(err, ErrNoVotesToClose) {
		t.Errorf("CanClose() with no votes = %v, want %v", err, ErrNoVotesToClose)
	}
	if err := CanClose(room, "r-9"); !errors.Is(err, ErrRoundNotFound) {
		t.Errorf("CanClose() unknown round = %v, want %v", err, ErrRoundNotFound)
	}

	CastVote(room, "r-1", "u-beto", 2)
	if err := CanClose(room, "r-1"); err != nil {
		t.Errorf("CanClose() with a vote = %v", err)
	}
	CloseRound(room, "r-1", epoch)
	if err := CanClose(room, "r-1"); !errors.Is(err, ErrRoundClosed) {
		t.Errorf("CanClose() after close = %v, want %v", err, ErrRoundClosed)
	}

	StartRound(room, "r-2", "next", epoch)
	if err := CanClose(room, "r-1"); !errors.Is(err, ErrRoundClosed) {
		t.Errorf("CanClose() on history round = %v, want %v", err, ErrRoundClosed)
	}
}

func TestCloseRoundTwiceRejected(t *testing.T) {
	room := newTestRoom(t)
	CastVote(room, "r-1", "u-ana", 1)
	if _, err := CloseRound(room, "r-1", epoch); err != nil {
		t.Fatalf("first CloseRound() error = %v", err)
	}
	if _, err := CloseRound(room, "r-1", epoch); !errors.Is(err, ErrRoundClosed) {
		t.Errorf("second CloseRound() error = %v, want %v", err, ErrRoundClosed)
	}
	if len(room.History) != 1 {
		t.Errorf("History length = %d, want 1", len(room.History))
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	room := newTestRoom(t)
	for i, id := range []string{"r-1", "r-2", "r-3"} {
		if i > 0 {
			if _, err := StartRound(room, id, "topic "+id, epoch); err != nil {
				t.Fatalf("StartRound(%s) error = %v", id, err)
			}
		}
		CastVote(room, id, "u-ana", float64(i+1))
		if _, err := CloseRound(room, id, epoch.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("CloseRound(%s) error = %v", id, err)
		}
	}

	got := []string{room.History[0].ID, room.History[1].ID, room.History[2].ID}
	if !reflect.DeepEqual(got, []string{"r-3", "r-2", "r-1"}) {
		t.Errorf("History order = %v", got)
	}
}

func TestStartRound(t *testing.T) {
	closed := func(r *models.Room) {
		r.CurrentRound.Votes["u-ana"] = 1
		CloseRound(r, r.CurrentRound.ID, epoch)
	}

	tests := []struct {
		name    string
		setup   func(*models.Room)
		roundID string
		topic   string
		wantErr error
	}{
		{"round still open", nil, "r-2", "next", ErrRoundOpen},
		{"empty topic", closed, "r-2", "  ", ErrTopicRequired},
		{"no more topics", func(r *models.Room) { closed(r); MarkNoMoreTopics(r) }, "r-2", "next", ErrNoMoreTopics},
		{"at ceiling", func(r *models.Room) { closed(r); r.MaxTopics = 1 }, "r-2", "next", ErrTopicLimitExceeded},
		{"reused id", closed, "r-1", "next", ErrDuplicateRound},
		{"ok", closed, "r-2", "next", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := newTestRoom(t)
			if tt.setup != nil {
				tt.setup(room)
			}
			before := room.CurrentTopicCount
			_, err := StartRound(room, tt.roundID, tt.topic, epoch)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("StartRound() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil && room.CurrentTopicCount != before {
				t.Error("failed StartRound() changed the topic count")
			}
		})
	}
}

func TestStartRoundRetryIsNoop(t *testing.T) {
	room := newTestRoom(t)
	CastVote(room, "r-1", "u-ana", 1)
	CloseRound(room, "r-1", epoch)

	if _, err := StartRound(room, "r-2", "next", epoch); err != nil {
		t.Fatalf("StartRound() error = %v", err)
	}
	round, err := StartRound(room, "r-2", "next", epoch)
	if err != nil {
		t.Fatalf("retried StartRound() error = %v", err)
	}
	if round.ID != "r-2" || room.CurrentTopicCount != 2 {
		t.Errorf("retry changed state: round %s, count %d", round.ID, room.CurrentTopicCount)
	}
}

func TestTopicCeiling(t *testing.T) {
	room := newTestRoom(t)
	room.MaxTopics = 3
	ids := []string{"r-1", "r-2", "r-3", "r-4"}
	for i, id := range ids {
		if i > 0 {
			_, err := StartRound(room, id, "t", epoch)
			if i < 3 && err != nil {
				t.Fatalf("StartRound(%s) error = %v", id, err)
			}
			if i == 3 {
				if !errors.Is(err, ErrTopicLimitExceeded) {
					t.Fatalf("StartRound past ceiling error = %v", err)
				}
				break
			}
		}
		CastVote(room, id, "u-ana", 1)
		CloseRound(room, id, epoch)
	}
	if room.CurrentTopicCount != 3 {
		t.Errorf("CurrentTopicCount = %d, want 3", room.CurrentTopicCount)
	}
}

func TestSetObserver(t *testing.T) {
	room := newTestRoom(t)
	CastVote(room, "r-1", "u-beto", 8)

	changed, err := SetObserver(room, "u-beto", true)
	if err != nil || !changed {
		t.Fatalf("SetObserver() = %v, %v", changed, err)
	}
	if _, ok := room.CurrentRound.Votes["u-beto"]; ok {
		t.Error("observer vote should be dropped from the open round")
	}

	changed, _ = SetObserver(room, "u-beto", true)
	if changed {
		t.Error("repeated SetObserver() reported a change")
	}
	if _, err := SetObserver(room, "u-zed", true); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("SetObserver() unknown user = %v", err)
	}
}

func TestAddMemberIdempotent(t *testing.T) {
	room := newTestRoom(t)
	added, err := AddMember(room, models.User{ID: "u-beto", Name: "Beto"})
	if err != nil || added {
		t.Errorf("AddMember() existing = %v, %v", added, err)
	}
	added, _ = AddMember(room, models.User{ID: "u-dan", Name: "Dan", IsLeader: true})
	if !added {
		t.Fatal("AddMember() new = false")
	}
	if room.User("u-dan").IsLeader {
		t.Error("joined member must not become leader")
	}
	if room.LeaderID != "u-ana" {
		t.Errorf("LeaderID changed to %s", room.LeaderID)
	}
}

func TestOrderedVotesFollowsJoinOrder(t *testing.T) {
	room := newTestRoom(t)
	room.CurrentRound.Votes = map[string]float64{"u-cleo": 8, "u-ana": 3, "u-gone": 1, "u-beto": 5}
	got := OrderedVotes(room)
	if !reflect.DeepEqual(got, []float64{3, 5, 8, 1}) {
		t.Errorf("OrderedVotes() = %v", got)
	}
}

func TestMarkNoMoreTopics(t *testing.T) {
	room := newTestRoom(t)
	if !MarkNoMoreTopics(room) {
		t.Error("first MarkNoMoreTopics() = false")
	}
	if MarkNoMoreTopics(room) {
		t.Error("second MarkNoMoreTopics() = true")
	}
	if room.HasMoreTopics {
		t.Error("HasMoreTopics still true")
	}
}

func TestIsLeader(t *testing.T) {
	room := newTestRoom(t)
	if !IsLeader(room, "u-ana") || IsLeader(room, "u-beto") || IsLeader(room, "") {
		t.Error("IsLeader() mismatch")
	}
}
