// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/deliberating-room/cliparse"
	"github.com/danielhkuo/deliberating-room/db"
	"github.com/danielhkuo/deliberating-room/models"
	"github.com/danielhkuo/deliberating-room/rounds"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Epoch is the fixed clock start used across tests
var Epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// OpenLocalDB opens a fresh SQLite cache in a temp dir with the local schema
func OpenLocalDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open(db.LocalDriver, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to open local cache: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateLocalSchema(conn); err != nil {
		t.Fatalf("Failed to create local schema: %v", err)
	}
	return conn
}

// OpenRemoteDB connects to TEST_DATABASE_URL and resets the remote schema.
// The test is skipped when the variable is unset or the server is unreachable.
func OpenRemoteDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	conn, err := sql.Open(db.RemoteDriver, url)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		t.Skipf("test database unreachable: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Clean up tables before each test
	_, err = conn.Exec(`
		DROP TABLE IF EXISTS votes CASCADE;
		DROP TABLE IF EXISTS rounds CASCADE;
		DROP TABLE IF EXISTS users CASCADE;
		DROP TABLE IF EXISTS rooms CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean database: %v", err)
	}
	if err := db.CreateRemoteSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		CachePath:       ":memory:",
		LeaderKeySalt:   "test-leader-salt",
		MaxTopics:       models.DefaultMaxTopics,
		SessionTTL:      24 * time.Hour,
		PollInterval:    20 * time.Millisecond,
		RemoteTimeout:   time.Second,
		CleanupInterval: time.Minute,
	}
}

// NewRoom builds a room led by Ana with an open first round "<id>-r1"
func NewRoom(t *testing.T, roomID string) *models.Room {
	t.Helper()

	room, err := rounds.NewRoom(rounds.NewRoomParams{
		RoomID:     roomID,
		Title:      "Sprint Planning",
		LeaderID:   roomID + "-ana",
		LeaderName: "Ana",
		RoundID:    roomID + "-r1",
		Topic:      "Backlog #1",
		MaxTopics:  models.DefaultMaxTopics,
		CreatedAt:  Epoch,
		TTL:        24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Failed to build test room: %v", err)
	}
	return room
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
