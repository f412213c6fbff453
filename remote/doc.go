// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package remote is the PostgreSQL room backend shared by every process.

Each mutation runs in one transaction: lock the room row, load the full
aggregate, apply the transition from package rounds, write the affected
rows, then pg_notify the room id on the room_changes channel so listeners in
other processes refresh.

# Errors

Every error leaving this package goes through Classify:

	sql.ErrNoRows                   not_found
	42501, 28000, 28P01             permission
	class 08, class 53, 57P01-03    transient
	40001, 40P01, 42P01, 42703      transient
	23505                           conflict
	net.Error, driver.ErrBadConn,
	io.EOF, context deadline        transient
	anything else                   unknown

Domain errors from package rounds already carry a kind and pass through.

# Reconciliation

Import merges a cached copy with offline writes into the stored room using
rounds.Merge. Rounds already closed here are never reopened or rewritten.
*/
package remote
