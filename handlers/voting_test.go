// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/deliberating-room/middleware"
	"github.com/danielhkuo/deliberating-room/models"
	"github.com/danielhkuo/deliberating-room/testutil"
)

func (e *testEnv) vote(roomID, userID, roundID string, value float64) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/rooms/"+roomID+"/votes", models.CastVoteRequest{
		UserID:  userID,
		RoundID: roundID,
		Value:   value,
	}, nil)
	req.SetPathValue("id", roomID)
	w := httptest.NewRecorder()
	e.voting.CastVote(w, req)
	return w
}

func (e *testEnv) closeRound(roomID, roundID string, headers map[string]string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/rooms/"+roomID+"/rounds/"+roundID+"/close", nil, headers)
	req.SetPathValue("id", roomID)
	req.SetPathValue("roundId", roundID)
	w := httptest.NewRecorder()
	e.voting.CloseRound(w, req)
	return w
}

func (e *testEnv) startRound(roomID, topic string, headers map[string]string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/rooms/"+roomID+"/rounds", models.StartRoundRequest{Topic: topic}, headers)
	req.SetPathValue("id", roomID)
	w := httptest.NewRecorder()
	e.voting.StartRound(w, req)
	return w
}

func leaderKey(key string) map[string]string {
	return map[string]string{middleware.HeaderLeaderKey: key}
}

func TestCastVote(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	roundID := env.getRoom(t, created.RoomID).CurrentRound.ID

	tests := []struct {
		name           string
		userID         string
		roundID        string
		value          float64
		expectedStatus int
	}{
		{"valid vote", created.UserID, roundID, 5, http.StatusOK},
		{"revote replaces", created.UserID, roundID, 8, http.StatusOK},
		{"value outside deck accepted", created.UserID, roundID, 4, http.StatusOK},
		{"negative value", created.UserID, roundID, -1, http.StatusBadRequest},
		{"unknown user", "u-nobody", roundID, 3, http.StatusNotFound},
		{"missing round id", created.UserID, "", 3, http.StatusBadRequest},
		{"stale round ignored", created.UserID, "r-stale", 13, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.vote(created.RoomID, tt.userID, tt.roundID, tt.value)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	room := env.getRoom(t, created.RoomID)
	if len(room.CurrentRound.Votes) != 1 || room.CurrentRound.Votes[created.UserID] != 4 {
		t.Errorf("Expected one vote of 4, got %v", room.CurrentRound.Votes)
	}
}

func TestObserverCannotVote(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	beto := env.join(t, created.RoomID, deviceBeto, "Beto")
	roundID := env.getRoom(t, created.RoomID).CurrentRound.ID

	testutil.AssertStatus(t, env.vote(created.RoomID, beto.UserID, roundID, 5), http.StatusOK)

	w := env.setObserver(created.RoomID, beto.UserID, `{"isObserver": true}`)
	testutil.AssertStatus(t, w, http.StatusOK)

	room := env.getRoom(t, created.RoomID)
	if _, ok := room.CurrentRound.Votes[beto.UserID]; ok {
		t.Error("Expected observer's vote to be withdrawn")
	}

	w = env.vote(created.RoomID, beto.UserID, roundID, 8)
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func (e *testEnv) setObserver(roomID, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/rooms/"+roomID+"/users/"+userID+"/observer", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("roomId", roomID)
	req.SetPathValue("userId", userID)
	w := httptest.NewRecorder()
	e.voting.SetObserver(w, req)
	return w
}

func TestSetObserverContract(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	beto := env.join(t, created.RoomID, deviceBeto, "Beto")

	tests := []struct {
		name            string
		userID          string
		body            string
		expectedStatus  int
		expectedSuccess bool
	}{
		{"set observer", beto.UserID, `{"isObserver": true}`, http.StatusOK, true},
		{"unset observer", beto.UserID, `{"isObserver": false}`, http.StatusOK, true},
		{"missing flag", beto.UserID, `{}`, http.StatusInternalServerError, false},
		{"snake case is not the contract", beto.UserID, `{"is_observer": true}`, http.StatusInternalServerError, false},
		{"invalid json", beto.UserID, `{`, http.StatusInternalServerError, false},
		{"unknown user", "u-nobody", `{"isObserver": true}`, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.setObserver(created.RoomID, tt.userID, tt.body)
			testutil.AssertStatus(t, w, tt.expectedStatus)

			var resp models.ObserverResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Success != tt.expectedSuccess {
				t.Errorf("Expected success=%v, got %v", tt.expectedSuccess, resp.Success)
			}
			if !resp.Success && resp.Error == "" {
				t.Error("Expected error message on failure")
			}
		})
	}
}

func TestCloseRound(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	roundID := env.getRoom(t, created.RoomID).CurrentRound.ID

	// no votes yet
	w := env.closeRound(created.RoomID, roundID, leaderKey(created.LeaderKey))
	testutil.AssertStatus(t, w, http.StatusConflict)

	env.vote(created.RoomID, created.UserID, roundID, 5)

	w = env.closeRound(created.RoomID, roundID, leaderKey("wrong-key"))
	testutil.AssertStatus(t, w, http.StatusForbidden)

	w = env.closeRound(created.RoomID, roundID, device(deviceBeto))
	testutil.AssertStatus(t, w, http.StatusForbidden)

	w = env.closeRound(created.RoomID, roundID, leaderKey(created.LeaderKey))
	testutil.AssertStatus(t, w, http.StatusOK)

	var item models.RoundHistoryItem
	testutil.AssertJSON(t, w, &item)
	if item.ID != roundID || item.Result.Average != 5 || item.Result.TotalVotes != 1 {
		t.Errorf("unexpected history item: %+v", item)
	}

	// closing twice is a conflict
	w = env.closeRound(created.RoomID, roundID, leaderKey(created.LeaderKey))
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestCloseRoundByCreatorDevice(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	roundID := env.getRoom(t, created.RoomID).CurrentRound.ID
	env.vote(created.RoomID, created.UserID, roundID, 3)

	w := env.closeRound(created.RoomID, roundID, device(deviceAna))
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestStartRound(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	roundID := env.getRoom(t, created.RoomID).CurrentRound.ID
	key := leaderKey(created.LeaderKey)

	// current round still open
	testutil.AssertStatus(t, env.startRound(created.RoomID, "Backlog #2", key), http.StatusConflict)

	env.vote(created.RoomID, created.UserID, roundID, 5)
	testutil.AssertStatus(t, env.closeRound(created.RoomID, roundID, key), http.StatusOK)

	testutil.AssertStatus(t, env.startRound(created.RoomID, "Backlog #2", nil), http.StatusForbidden)

	w := env.startRound(created.RoomID, "Backlog #2", key)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.StartRoundResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Topic != "Backlog #2" || resp.TopicNumber != 2 || resp.RoundID == "" || resp.RoundID == roundID {
		t.Errorf("unexpected round: %+v", resp)
	}
}

func TestStartRoundGeneratesTopic(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	roundID := env.getRoom(t, created.RoomID).CurrentRound.ID
	key := leaderKey(created.LeaderKey)
	env.vote(created.RoomID, created.UserID, roundID, 5)
	env.closeRound(created.RoomID, roundID, key)

	w := env.startRound(created.RoomID, "", key)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.StartRoundResponse
	testutil.AssertJSON(t, w, &resp)
	if strings.TrimSpace(resp.Topic) == "" {
		t.Error("Expected a generated topic")
	}
}

func TestTopicCeiling(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	key := leaderKey(created.LeaderKey)

	for i := 1; i < models.DefaultMaxTopics; i++ {
		roundID := env.getRoom(t, created.RoomID).CurrentRound.ID
		env.vote(created.RoomID, created.UserID, roundID, 1)
		testutil.AssertStatus(t, env.closeRound(created.RoomID, roundID, key), http.StatusOK)
		testutil.AssertStatus(t, env.startRound(created.RoomID, "next", key), http.StatusCreated)
	}

	room := env.getRoom(t, created.RoomID)
	if room.CurrentTopicCount != models.DefaultMaxTopics {
		t.Fatalf("Expected %d topics, got %d", models.DefaultMaxTopics, room.CurrentTopicCount)
	}
	env.vote(created.RoomID, created.UserID, room.CurrentRound.ID, 1)
	env.closeRound(created.RoomID, room.CurrentRound.ID, key)

	w := env.startRound(created.RoomID, "one too many", key)
	testutil.AssertStatus(t, w, http.StatusConflict)

	after := env.getRoom(t, created.RoomID)
	if after.CurrentRound.ID != room.CurrentRound.ID || after.CurrentTopicCount != models.DefaultMaxTopics {
		t.Error("Expected the room to be unchanged after hitting the ceiling")
	}
}

func TestFinishRoom(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	key := leaderKey(created.LeaderKey)

	req := testutil.MakeRequest("POST", "/rooms/"+created.RoomID+"/finish", nil, key)
	req.SetPathValue("id", created.RoomID)
	w := httptest.NewRecorder()
	env.voting.FinishRoom(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var room models.Room
	testutil.AssertJSON(t, w, &room)
	if room.HasMoreTopics {
		t.Error("Expected has_more_topics=false")
	}

	roundID := room.CurrentRound.ID
	env.vote(created.RoomID, created.UserID, roundID, 2)
	env.closeRound(created.RoomID, roundID, key)
	testutil.AssertStatus(t, env.startRound(created.RoomID, "after finish", key), http.StatusConflict)
}
