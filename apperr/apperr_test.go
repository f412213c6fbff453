// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := New(Conflict, "round already closed")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), Unknown},
		{"classified", base, Conflict},
		{"wrapped with fmt", fmt.Errorf("close round: %w", base), Conflict},
		{"wrapped with Wrap", Wrap(errors.New("dial tcp"), Transient, "remote.GetRoom"), Transient},
		{"empty kind", &Error{Msg: "x"}, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, Transient, "op"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(errors.New("connection refused"), Transient, "remote.GetRoom")
	want := "remote.GetRoom: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	e := &Error{Kind: NotFound, Op: "store.GetRoom", Msg: "room not found", Err: errors.New("no rows")}
	want = "store.GetRoom: room not found: no rows"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestSentinelComparable(t *testing.T) {
	sentinel := New(Conflict, "topic limit exceeded")
	wrapped := fmt.Errorf("start round: %w", sentinel)
	if !errors.Is(wrapped, sentinel) {
		t.Error("errors.Is should match wrapped sentinel")
	}
	if !Is(wrapped, Conflict) {
		t.Error("Is(wrapped, Conflict) should be true")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{NotFound, http.StatusNotFound},
		{Permission, http.StatusForbidden},
		{Transient, http.StatusServiceUnavailable},
		{Conflict, http.StatusConflict},
		{Validation, http.StatusBadRequest},
		{Unknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.kind); got != tt.want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
