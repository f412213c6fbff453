// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/deliberating-room/db"
	"github.com/danielhkuo/deliberating-room/models"
)

// Store is the Postgres room backend
type Store struct {
	db *sql.DB
}

func New(conn *sql.DB) *Store {
	return &Store{db: conn}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return Classify("remote.Ping", s.db.PingContext(ctx))
}

// GetRoom assembles the full aggregate
func (s *Store) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := loadRoom(ctx, s.db, roomID, false)
	if err != nil {
		return nil, Classify("remote.GetRoom", err)
	}
	return room, nil
}

// CreateRoom inserts the room, its leader and its first round
func (s *Store) CreateRoom(ctx context.Context, room *models.Room) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Classify("remote.CreateRoom", err)
	}
	defer tx.Rollback()

	if err := insertRoom(ctx, tx, room); err != nil {
		return Classify("remote.CreateRoom", err)
	}
	for _, u := range room.Users {
		if err := upsertUser(ctx, tx, room.ID, u); err != nil {
			return Classify("remote.CreateRoom", err)
		}
	}
	if err := insertRound(ctx, tx, room.ID, room.CurrentRound); err != nil {
		return Classify("remote.CreateRoom", err)
	}
	if err := notify(ctx, tx, room.ID); err != nil {
		return Classify("remote.CreateRoom", err)
	}
	if err := tx.Commit(); err != nil {
		return Classify("remote.CreateRoom", err)
	}

	slog.Info("room stored remotely", "room_id", room.ID)
	return nil
}

// PurgeExpired deletes rooms past their expiry; rows below cascade
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, Classify("remote.PurgeExpired", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("purged expired remote rooms", "count", n)
	}
	return n, nil
}

// loadRoom reads the room and everything under it. With lock set the room
// row is held FOR UPDATE until the surrounding transaction ends.
func loadRoom(ctx context.Context, q querier, roomID string, lock bool) (*models.Room, error) {
	query := `
		SELECT id, title, story_link, leader_id, is_active, has_more_topics,
		       current_topic_count, max_topics, session_id, created_at, expires_at
		FROM rooms WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	var room models.Room
	err := q.QueryRowContext(ctx, query, roomID).Scan(
		&room.ID, &room.Title, &room.StoryLink, &room.LeaderID, &room.IsActive,
		&room.HasMoreTopics, &room.CurrentTopicCount, &room.MaxTopics,
		&room.SessionID, &room.CreatedAt, &room.ExpiresAt,
	)
	if err != nil {
		return nil, roomNotFound(err)
	}

	users, err := loadUsers(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	room.Users = users

	votes, err := loadVotes(ctx, q, roomID)
	if err != nil {
		return nil, err
	}

	roundList, err := loadRounds(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	room.History = []models.RoundHistoryItem{}
	for i, r := range roundList {
		r.Votes = votes[r.ID]
		if r.Votes == nil {
			r.Votes = map[string]float64{}
		}
		if i == 0 {
			room.CurrentRound = r
		}
		if !r.IsOpen {
			room.History = append(room.History, historyItem(r))
		}
	}
	return &room, nil
}

func loadUsers(ctx context.Context, q querier, roomID string) ([]models.User, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, is_leader, is_observer
		FROM users WHERE room_id = $1
		ORDER BY seq
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.IsLeader, &u.IsObserver); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func loadVotes(ctx context.Context, q querier, roomID string) (map[string]map[string]float64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT round_id, user_id, value
		FROM votes WHERE room_id = $1
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	votes := make(map[string]map[string]float64)
	for rows.Next() {
		var roundID, userID string
		var value float64
		if err := rows.Scan(&roundID, &userID, &value); err != nil {
			return nil, err
		}
		if votes[roundID] == nil {
			votes[roundID] = make(map[string]float64)
		}
		votes[roundID][userID] = value
	}
	return votes, rows.Err()
}

// loadRounds returns rounds newest first; the first one is current
func loadRounds(ctx context.Context, q querier, roomID string) ([]models.Round, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, topic, topic_number, is_open, average, mode, total_votes, created_at, closed_at
		FROM rounds WHERE room_id = $1
		ORDER BY topic_number DESC, created_at DESC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Round
	for rows.Next() {
		var (
			r        models.Round
			average  sql.NullFloat64
			mode     pq.Float64Array
			total    sql.NullInt64
			closedAt sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.Topic, &r.TopicNumber, &r.IsOpen, &average, &mode, &total, &r.CreatedAt, &closedAt); err != nil {
			return nil, err
		}
		if !r.IsOpen {
			m := []float64(mode)
			if m == nil {
				m = []float64{}
			}
			r.Result = &models.RoundResult{
				Average:    average.Float64,
				Mode:       m,
				TotalVotes: int(total.Int64),
			}
		}
		if closedAt.Valid {
			at := closedAt.Time
			r.ClosedAt = &at
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, sql.ErrNoRows
	}
	return list, nil
}

func historyItem(r models.Round) models.RoundHistoryItem {
	item := models.RoundHistoryItem{
		ID:          r.ID,
		Topic:       r.Topic,
		TopicNumber: r.TopicNumber,
		Votes:       r.Votes,
	}
	if r.Result != nil {
		item.Result = *r.Result
		item.Result.Mode = append([]float64{}, r.Result.Mode...)
	}
	if r.ClosedAt != nil {
		item.ClosedAt = *r.ClosedAt
	}
	return item
}

func insertRoom(ctx context.Context, q querier, room *models.Room) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO rooms (id, title, story_link, leader_id, is_active, has_more_topics,
		                   current_topic_count, max_topics, session_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, room.ID, room.Title, room.StoryLink, room.LeaderID, room.IsActive, room.HasMoreTopics,
		room.CurrentTopicCount, room.MaxTopics, room.SessionID, room.CreatedAt, room.ExpiresAt)
	return err
}

func upsertUser(ctx context.Context, q querier, roomID string, u models.User) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO users (id, room_id, name, is_leader, is_observer)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET is_observer = EXCLUDED.is_observer
	`, u.ID, roomID, u.Name, u.IsLeader, u.IsObserver)
	return err
}

func insertRound(ctx context.Context, q querier, roomID string, r models.Round) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO rounds (id, room_id, topic, topic_number, is_open, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (id) DO NOTHING
	`, r.ID, roomID, r.Topic, r.TopicNumber, r.CreatedAt)
	return err
}

func notify(ctx context.Context, q querier, roomID string) error {
	_, err := q.ExecContext(ctx, `SELECT pg_notify($1, $2)`, db.NotifyChannel, roomID)
	return err
}
