// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rounds

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/models"
)

var (
	ErrNoVotesToClose     = apperr.New(apperr.Conflict, "no votes to close")
	ErrTopicLimitExceeded = apperr.New(apperr.Conflict, "topic limit exceeded")
	ErrRoundClosed        = apperr.New(apperr.Conflict, "round is closed")
	ErrRoundOpen          = apperr.New(apperr.Conflict, "current round is still open")
	ErrObserverCannotVote = apperr.New(apperr.Conflict, "observers cannot vote")
	ErrNoMoreTopics       = apperr.New(apperr.Conflict, "room has no more topics")
	ErrDuplicateRound     = apperr.New(apperr.Conflict, "round id already used in this room")
	ErrTopicRequired      = apperr.New(apperr.Validation, "topic is required")
	ErrNameRequired       = apperr.New(apperr.Validation, "name is required")
	ErrTitleRequired      = apperr.New(apperr.Validation, "title is required")
	ErrInvalidVote        = apperr.New(apperr.Validation, "vote must be a finite, non-negative number")
	ErrRoomNotFound       = apperr.New(apperr.NotFound, "room not found")
	ErrUserNotFound       = apperr.New(apperr.NotFound, "user not found")
	ErrRoundNotFound      = apperr.New(apperr.NotFound, "round not found")
)

// NewRoomParams carries the caller-allocated ids for a fresh room
type NewRoomParams struct {
	RoomID     string
	Title      string
	StoryLink  string
	LeaderID   string
	LeaderName string
	RoundID    string
	Topic      string
	MaxTopics  int
	SessionID  string
	CreatedAt  time.Time
	TTL        time.Duration
}

// NewRoom builds a room whose leader is its only member and whose first
// round is open.
func NewRoom(p NewRoomParams) (*models.Room, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	leaderName := strings.TrimSpace(p.LeaderName)
	if leaderName == "" {
		return nil, ErrNameRequired
	}
	topic := strings.TrimSpace(p.Topic)
	if topic == "" {
		return nil, ErrTopicRequired
	}

	maxTopics := p.MaxTopics
	if maxTopics <= 0 {
		maxTopics = models.DefaultMaxTopics
	}

	return &models.Room{
		ID:        p.RoomID,
		Title:     title,
		StoryLink: strings.TrimSpace(p.StoryLink),
		LeaderID:  p.LeaderID,
		Users: []models.User{{
			ID:       p.LeaderID,
			Name:     leaderName,
			IsLeader: true,
		}},
		CurrentRound:      NewRound(p.RoundID, topic, 1, p.CreatedAt),
		History:           []models.RoundHistoryItem{},
		IsActive:          true,
		HasMoreTopics:     true,
		CurrentTopicCount: 1,
		MaxTopics:         maxTopics,
		SessionID:         p.SessionID,
		CreatedAt:         p.CreatedAt,
		ExpiresAt:         p.CreatedAt.Add(p.TTL),
	}, nil
}

// NewRound returns an open round with no votes
func NewRound(id, topic string, number int, at time.Time) models.Round {
	return models.Round{
		ID:          id,
		Topic:       topic,
		TopicNumber: number,
		IsOpen:      true,
		Votes:       map[string]float64{},
		CreatedAt:   at,
	}
}

// AddMember appends user to the room. Returns false when the id is
// already a member.
func AddMember(room *models.Room, user models.User) (bool, error) {
	if strings.TrimSpace(user.Name) == "" {
		return false, ErrNameRequired
	}
	if room.User(user.ID) != nil {
		return false, nil
	}
	user.IsLeader = false
	room.Users = append(room.Users, user)
	return true, nil
}

// SetObserver flips a member's observer flag. A member who becomes an
// observer loses any vote in the open round.
func SetObserver(room *models.Room, userID string, isObserver bool) (bool, error) {
	user := room.User(userID)
	if user == nil {
		return false, ErrUserNotFound
	}

	changed := user.IsObserver != isObserver
	user.IsObserver = isObserver

	if isObserver && room.CurrentRound.IsOpen {
		if _, voted := room.CurrentRound.Votes[userID]; voted {
			delete(room.CurrentRound.Votes, userID)
			changed = true
		}
	}
	return changed, nil
}

// ValidateVote rejects values that cannot be averaged
func ValidateVote(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return ErrInvalidVote
	}
	return nil
}

// CastVote records userID's vote in the current round, replacing any
// earlier value. A vote for a closed or stale round is ignored and reports
// false with no error. Observers are rejected.
func CastVote(room *models.Room, roundID, userID string, value float64) (bool, error) {
	if err := ValidateVote(value); err != nil {
		return false, err
	}
	user := room.User(userID)
	if user == nil {
		return false, ErrUserNotFound
	}
	if user.IsObserver {
		return false, ErrObserverCannotVote
	}

	round := &room.CurrentRound
	if round.ID != roundID || !round.IsOpen {
		return false, nil
	}

	if prev, ok := round.Votes[userID]; ok && prev == value {
		return false, nil
	}
	if round.Votes == nil {
		round.Votes = map[string]float64{}
	}
	round.Votes[userID] = value
	return true, nil
}

// AllVoted reports whether every non-observer member has a vote in the
// current round. A room with no eligible voters is never complete.
func AllVoted(room *models.Room) bool {
	eligible := 0
	for _, u := range room.Users {
		if u.IsObserver {
			continue
		}
		eligible++
		if _, ok := room.CurrentRound.Votes[u.ID]; !ok {
			return false
		}
	}
	return eligible > 0
}

// CanClose reports whether roundID may transition to closed right now
func CanClose(room *models.Room, roundID string) error {
	if room.CurrentRound.ID != roundID {
		for _, h := range room.History {
			if h.ID == roundID {
				return ErrRoundClosed
			}
		}
		return ErrRoundNotFound
	}
	if !room.CurrentRound.IsOpen {
		return ErrRoundClosed
	}
	if len(room.CurrentRound.Votes) == 0 {
		return ErrNoVotesToClose
	}
	return nil
}

// CloseRound freezes the current round, computes its result and prepends
// the history item.
func CloseRound(room *models.Room, roundID string, at time.Time) (models.RoundHistoryItem, error) {
	if err := CanClose(room, roundID); err != nil {
		return models.RoundHistoryItem{}, err
	}

	round := &room.CurrentRound
	result := ComputeResult(OrderedVotes(room))
	closedAt := at

	round.IsOpen = false
	round.Result = &result
	round.ClosedAt = &closedAt

	votes := make(map[string]float64, len(round.Votes))
	for k, v := range round.Votes {
		votes[k] = v
	}
	item := models.RoundHistoryItem{
		ID:          round.ID,
		Topic:       round.Topic,
		TopicNumber: round.TopicNumber,
		Votes:       votes,
		Result:      result,
		ClosedAt:    closedAt,
	}
	room.History = append([]models.RoundHistoryItem{item}, room.History...)

	// history item keeps its own mode slice
	item.Result.Mode = append([]float64(nil), result.Mode...)
	return item, nil
}

// OrderedVotes lists the current round's vote values in member join order,
// followed by votes from ids no longer in the member list sorted by id.
func OrderedVotes(room *models.Room) []float64 {
	votes := room.CurrentRound.Votes
	values := make([]float64, 0, len(votes))
	seen := make(map[string]bool, len(votes))

	for _, u := range room.Users {
		if v, ok := votes[u.ID]; ok {
			values = append(values, v)
			seen[u.ID] = true
		}
	}

	var rest []string
	for id := range votes {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		values = append(values, votes[id])
	}
	return values
}

// CanStartRound reports whether a new round may be opened
func CanStartRound(room *models.Room) error {
	if room.CurrentRound.IsOpen {
		return ErrRoundOpen
	}
	if !room.HasMoreTopics {
		return ErrNoMoreTopics
	}
	if room.CurrentTopicCount+1 > room.MaxTopics {
		return ErrTopicLimitExceeded
	}
	return nil
}

// StartRound replaces the closed current round with a fresh open one.
// Repeating the call with the same round id is a no-op.
func StartRound(room *models.Room, roundID, topic string, at time.Time) (models.Round, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return models.Round{}, ErrTopicRequired
	}
	if room.CurrentRound.ID == roundID && room.CurrentRound.IsOpen {
		return room.CurrentRound, nil
	}
	if err := CanStartRound(room); err != nil {
		return models.Round{}, err
	}
	if room.CurrentRound.ID == roundID {
		return models.Round{}, ErrDuplicateRound
	}
	for _, h := range room.History {
		if h.ID == roundID {
			return models.Round{}, ErrDuplicateRound
		}
	}

	room.CurrentRound = NewRound(roundID, topic, room.CurrentRound.TopicNumber+1, at)
	room.CurrentTopicCount++
	return room.CurrentRound, nil
}

// MarkNoMoreTopics clears the "more topics expected" flag. It never sets it back.
func MarkNoMoreTopics(room *models.Room) bool {
	if !room.HasMoreTopics {
		return false
	}
	room.HasMoreTopics = false
	return true
}

// IsLeader reports whether userID leads room
func IsLeader(room *models.Room, userID string) bool {
	return userID != "" && room.LeaderID == userID
}
