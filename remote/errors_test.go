// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/lib/pq"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/rounds"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"no rows", sql.ErrNoRows, apperr.NotFound},
		{"insufficient privilege", &pq.Error{Code: "42501"}, apperr.Permission},
		{"invalid authorization", &pq.Error{Code: "28000"}, apperr.Permission},
		{"bad password", &pq.Error{Code: "28P01"}, apperr.Permission},
		{"connection failure", &pq.Error{Code: "08006"}, apperr.Transient},
		{"too many connections", &pq.Error{Code: "53300"}, apperr.Transient},
		{"admin shutdown", &pq.Error{Code: "57P01"}, apperr.Transient},
		{"query canceled", &pq.Error{Code: "57014"}, apperr.Unknown},
		{"serialization", &pq.Error{Code: "40001"}, apperr.Transient},
		{"undefined table", &pq.Error{Code: "42P01"}, apperr.Transient},
		{"undefined column", &pq.Error{Code: "42703"}, apperr.Transient},
		{"unique violation", &pq.Error{Code: "23505"}, apperr.Conflict},
		{"syntax error", &pq.Error{Code: "42601"}, apperr.Unknown},
		{"bad conn", driver.ErrBadConn, apperr.Transient},
		{"eof", io.EOF, apperr.Transient},
		{"deadline", context.DeadlineExceeded, apperr.Transient},
		{"net error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, apperr.Transient},
		{"wrapped pq", fmt.Errorf("insert: %w", &pq.Error{Code: "42501"}), apperr.Permission},
		{"plain", errors.New("something odd"), apperr.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("remote.Test", tt.err)
			if k := apperr.KindOf(got); k != tt.want {
				t.Errorf("Classify() kind = %q, want %q", k, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Error("Classify() lost the original error")
			}
		})
	}
}

func TestClassifyPassesDomainErrors(t *testing.T) {
	got := Classify("remote.CloseRound", rounds.ErrNoVotesToClose)
	if got != rounds.ErrNoVotesToClose {
		t.Errorf("Classify() = %v, want the sentinel unchanged", got)
	}
	if Classify("op", nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestRoomNotFound(t *testing.T) {
	if !errors.Is(roomNotFound(sql.ErrNoRows), rounds.ErrRoomNotFound) {
		t.Error("ErrNoRows should map to ErrRoomNotFound")
	}
	other := errors.New("x")
	if roomNotFound(other) != other {
		t.Error("other errors should pass through")
	}
}
