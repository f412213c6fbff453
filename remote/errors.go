// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/lib/pq"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/rounds"
)

// Classify maps a driver or network error onto the shared taxonomy.
// Errors that already carry a kind pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *apperr.Error
	if errors.As(err, &classified) {
		return err
	}
	return apperr.Wrap(err, kindOf(err), op)
}

func kindOf(err error) apperr.Kind {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Transient
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperr.Transient
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return kindOfCode(pqErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperr.Transient
	}
	return apperr.Unknown
}

func kindOfCode(code pq.ErrorCode) apperr.Kind {
	switch code {
	case "42501", "28000", "28P01": // insufficient_privilege, invalid_authorization, invalid_password
		return apperr.Permission
	case "23505": // unique_violation
		return apperr.Conflict
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return apperr.Transient
	case "42P01", "42703": // undefined_table, undefined_column
		return apperr.Transient
	}

	switch code.Class() {
	case "08", "53": // connection_exception, insufficient_resources
		return apperr.Transient
	case "57":
		// admin_shutdown, crash_shutdown, cannot_connect_now
		if code == "57P01" || code == "57P02" || code == "57P03" {
			return apperr.Transient
		}
	}
	return apperr.Unknown
}

// roomNotFound turns a missing room row into the shared sentinel
func roomNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return rounds.ErrRoomNotFound
	}
	return err
}
