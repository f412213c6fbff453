// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
)

// TestConcurrentVotes verifies that simultaneous votes from different
// members each land exactly once
func TestConcurrentVotes(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)

	numVoters := 8
	userIDs := make([]string, numVoters)
	for i := 0; i < numVoters; i++ {
		userIDs[i] = env.join(t, created.RoomID, uuid.NewString(), fmt.Sprintf("Voter %d", i)).UserID
	}
	roundID := env.getRoom(t, created.RoomID).CurrentRound.ID

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			w := env.vote(created.RoomID, userIDs[idx], roundID, float64(idx%3+1))
			if w.Code == http.StatusOK {
				successCount.Add(1)
			} else {
				t.Errorf("Voter %d: status %d - %s", idx, w.Code, w.Body.String())
			}
		}(i)
	}
	wg.Wait()

	if got := successCount.Load(); int(got) != numVoters {
		t.Errorf("Expected %d successful votes, got %d", numVoters, got)
	}
	room := env.getRoom(t, created.RoomID)
	if len(room.CurrentRound.Votes) != numVoters {
		t.Errorf("Expected %d votes, got %d", numVoters, len(room.CurrentRound.Votes))
	}
}

// TestConcurrentCloseRound verifies that exactly one of several racing
// close requests wins
func TestConcurrentCloseRound(t *testing.T) {
	env := setupTestEnv(t)
	created := env.createRoom(t)
	roundID := env.getRoom(t, created.RoomID).CurrentRound.ID
	env.vote(created.RoomID, created.UserID, roundID, 5)

	var closed, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := env.closeRound(created.RoomID, roundID, leaderKey(created.LeaderKey))
			switch w.Code {
			case http.StatusOK:
				closed.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			default:
				t.Errorf("unexpected status %d - %s", w.Code, w.Body.String())
			}
		}()
	}
	wg.Wait()

	if closed.Load() != 1 || conflicts.Load() != 4 {
		t.Errorf("Expected 1 close and 4 conflicts, got %d and %d", closed.Load(), conflicts.Load())
	}
	if n := len(env.getRoom(t, created.RoomID).History); n != 1 {
		t.Errorf("Expected 1 history item, got %d", n)
	}
}
