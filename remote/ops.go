// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/deliberating-room/models"
	"github.com/danielhkuo/deliberating-room/rounds"
)

// mutate locks the room row, loads the aggregate, lets fn apply one state
// machine transition and write it, then signals the change. fn reports
// whether it wrote anything; unchanged rooms are not signalled.
func (s *Store) mutate(ctx context.Context, op, roomID string, fn func(tx *sql.Tx, room *models.Room) (bool, error)) (*models.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Classify(op, err)
	}
	defer tx.Rollback()

	room, err := loadRoom(ctx, tx, roomID, true)
	if err != nil {
		return nil, Classify(op, err)
	}

	changed, err := fn(tx, room)
	if err != nil {
		return nil, Classify(op, err)
	}
	if !changed {
		return room, nil
	}

	if err := notify(ctx, tx, roomID); err != nil {
		return nil, Classify(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, Classify(op, err)
	}
	return room, nil
}

func (s *Store) JoinRoom(ctx context.Context, roomID string, user models.User) (*models.Room, error) {
	return s.mutate(ctx, "remote.JoinRoom", roomID, func(tx *sql.Tx, room *models.Room) (bool, error) {
		added, err := rounds.AddMember(room, user)
		if err != nil || !added {
			return false, err
		}
		return true, upsertUser(ctx, tx, roomID, *room.User(user.ID))
	})
}

func (s *Store) SetObserverStatus(ctx context.Context, roomID, userID string, isObserver bool) (*models.Room, error) {
	return s.mutate(ctx, "remote.SetObserverStatus", roomID, func(tx *sql.Tx, room *models.Room) (bool, error) {
		changed, err := rounds.SetObserver(room, userID, isObserver)
		if err != nil || !changed {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET is_observer = $1 WHERE id = $2 AND room_id = $3
		`, isObserver, userID, roomID); err != nil {
			return false, err
		}
		if isObserver && room.CurrentRound.IsOpen {
			if _, err := tx.ExecContext(ctx, `
				DELETE FROM votes WHERE round_id = $1 AND user_id = $2
			`, room.CurrentRound.ID, userID); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

func (s *Store) CastVote(ctx context.Context, roomID, roundID, userID string, value float64) (*models.Room, error) {
	return s.mutate(ctx, "remote.CastVote", roomID, func(tx *sql.Tx, room *models.Room) (bool, error) {
		applied, err := rounds.CastVote(room, roundID, userID, value)
		if err != nil || !applied {
			return false, err
		}
		return true, upsertVote(ctx, tx, roomID, roundID, userID, value)
	})
}

// CloseRound freezes the round with a conditional update, so of two racing
// closes only one matches is_open and the other gets ErrRoundClosed.
func (s *Store) CloseRound(ctx context.Context, roomID, roundID string, at time.Time) (*models.Room, error) {
	return s.mutate(ctx, "remote.CloseRound", roomID, func(tx *sql.Tx, room *models.Room) (bool, error) {
		item, err := rounds.CloseRound(room, roundID, at)
		if err != nil {
			return false, err
		}
		closed, err := closeRound(ctx, tx, roundID, item.Result, at)
		if err != nil {
			return false, err
		}
		if !closed {
			return false, rounds.ErrRoundClosed
		}
		slog.Info("round closed", "room_id", roomID, "round_id", roundID, "total_votes", item.Result.TotalVotes)
		return true, nil
	})
}

func (s *Store) StartRound(ctx context.Context, roomID, roundID, topic string, at time.Time) (*models.Room, error) {
	return s.mutate(ctx, "remote.StartRound", roomID, func(tx *sql.Tx, room *models.Room) (bool, error) {
		before := room.CurrentRound.ID
		round, err := rounds.StartRound(room, roundID, topic, at)
		if err != nil || round.ID == before {
			return false, err
		}
		if err := insertRound(ctx, tx, roomID, round); err != nil {
			return false, err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE rooms SET current_topic_count = $1 WHERE id = $2
		`, room.CurrentTopicCount, roomID)
		return err == nil, err
	})
}

func (s *Store) MarkNoMoreTopics(ctx context.Context, roomID string) (*models.Room, error) {
	return s.mutate(ctx, "remote.MarkNoMoreTopics", roomID, func(tx *sql.Tx, room *models.Room) (bool, error) {
		if !rounds.MarkNoMoreTopics(room) {
			return false, nil
		}
		_, err := tx.ExecContext(ctx, `UPDATE rooms SET has_more_topics = FALSE WHERE id = $1`, roomID)
		return err == nil, err
	})
}

// Import folds a cached copy holding offline writes into the stored room
// and returns what is stored afterwards. A room the remote has never seen
// is inserted whole.
func (s *Store) Import(ctx context.Context, local *models.Room) (*models.Room, error) {
	const op = "remote.Import"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Classify(op, err)
	}
	defer tx.Rollback()

	base, err := loadRoom(ctx, tx, local.ID, true)
	switch {
	case errors.Is(err, rounds.ErrRoomNotFound):
		if err := insertRoom(ctx, tx, local); err != nil {
			return nil, Classify(op, err)
		}
	case err != nil:
		return nil, Classify(op, err)
	}

	merged := rounds.Merge(base, local)
	if err := writeMerged(ctx, tx, merged); err != nil {
		return nil, Classify(op, err)
	}
	if err := notify(ctx, tx, merged.ID); err != nil {
		return nil, Classify(op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, Classify(op, err)
	}
	return merged, nil
}

// writeMerged upserts every row of a merged room. Rounds are inserted open,
// votes land while they are open, then rounds closed in the merge are frozen.
// A round already closed here is never touched.
func writeMerged(ctx context.Context, tx *sql.Tx, room *models.Room) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE rooms
		SET has_more_topics = has_more_topics AND $1,
		    current_topic_count = GREATEST(current_topic_count, $2)
		WHERE id = $3
	`, room.HasMoreTopics, room.CurrentTopicCount, room.ID); err != nil {
		return err
	}

	for _, u := range room.Users {
		if err := upsertUser(ctx, tx, room.ID, u); err != nil {
			return err
		}
	}

	all := []models.Round{room.CurrentRound}
	for _, h := range room.History {
		if h.ID == room.CurrentRound.ID {
			continue
		}
		result := h.Result
		closedAt := h.ClosedAt
		all = append(all, models.Round{
			ID: h.ID, Topic: h.Topic, TopicNumber: h.TopicNumber,
			Votes: h.Votes, Result: &result, ClosedAt: &closedAt, CreatedAt: h.ClosedAt,
		})
	}

	for _, r := range all {
		if err := insertRound(ctx, tx, room.ID, r); err != nil {
			return err
		}
		for userID, value := range r.Votes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO votes (user_id, room_id, round_id, value)
				SELECT $1, $2, $3, $4
				WHERE EXISTS (SELECT 1 FROM rounds WHERE id = $3 AND is_open)
				ON CONFLICT (round_id, user_id) DO UPDATE SET value = EXCLUDED.value
			`, userID, room.ID, r.ID, value); err != nil {
				return err
			}
		}
		if !r.IsOpen && r.Result != nil {
			at := time.Now()
			if r.ClosedAt != nil {
				at = *r.ClosedAt
			}
			if _, err := closeRound(ctx, tx, r.ID, *r.Result, at); err != nil {
				return err
			}
		}
	}
	return nil
}

func upsertVote(ctx context.Context, q querier, roomID, roundID, userID string, value float64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO votes (user_id, room_id, round_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (round_id, user_id) DO UPDATE SET value = EXCLUDED.value
	`, userID, roomID, roundID, value)
	return err
}

// closeRound freezes an open round and reports whether it was still open
func closeRound(ctx context.Context, q querier, roundID string, result models.RoundResult, at time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE rounds
		SET is_open = FALSE, average = $1, mode = $2, total_votes = $3, closed_at = $4
		WHERE id = $5 AND is_open
	`, result.Average, pq.Float64Array(result.Mode), result.TotalVotes, at, roundID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
