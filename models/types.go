package models

import "time"

// Room defaults
const (
	DefaultMaxTopics = 10
	RoomCodeLength   = 6
)

// Event types pushed over the events socket
const (
	EventRoomChanged = "room_changed"
)

// Request types

type CreateRoomRequest struct {
	Title      string `json:"title"`
	StoryLink  string `json:"story_link"`
	LeaderName string `json:"leader_name"`
	Topic      string `json:"topic"`
	SessionID  string `json:"session_id"`
}

type JoinRoomRequest struct {
	Name string `json:"name"`
}

type CastVoteRequest struct {
	UserID  string  `json:"user_id"`
	RoundID string  `json:"round_id"`
	Value   float64 `json:"value"`
}

type StartRoundRequest struct {
	Topic string `json:"topic"`
}

// ObserverRequest is the cross-process observer toggle body
type ObserverRequest struct {
	IsObserver *bool `json:"isObserver"`
}

// Response types

type CreateRoomResponse struct {
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	LeaderKey string `json:"leader_key"`
}

type JoinRoomResponse struct {
	UserID    string `json:"user_id"`
	RoomID    string `json:"room_id"`
	IsNewUser bool   `json:"is_new_user"`
}

type StartRoundResponse struct {
	RoundID     string `json:"round_id"`
	Topic       string `json:"topic"`
	TopicNumber int    `json:"topic_number"`
}

type ObserverResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type RoomCheckResponse struct {
	Exists bool    `json:"exists"`
	Title  *string `json:"title"`
}

type RoomStatusResponse struct {
	Exists            bool   `json:"exists"`
	Title             string `json:"title"`
	UserCount         int    `json:"user_count"`
	CurrentRoundOpen  bool   `json:"current_round_open"`
	CurrentRoundTopic string `json:"current_round_topic"`
	HasHistory        bool   `json:"has_history"`
	HasMoreTopics     bool   `json:"has_more_topics"`
	ExpiresIn         string `json:"expires_in,omitempty"`
}

type CleanupResponse struct {
	Success        bool `json:"success"`
	RemoteRooms    int  `json:"remote_rooms"`
	CachedRooms    int  `json:"cached_rooms"`
	SessionRecords int  `json:"session_records"`
}

type RoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// Diagnostics reports which part of the path to a room is failing
type Diagnostics struct {
	RoomExists      bool              `json:"room_exists"`
	LocalCacheWorks bool              `json:"local_cache_works"`
	RemoteReachable bool              `json:"remote_reachable"`
	UserInRoom      bool              `json:"user_in_room"`
	UserID          *string           `json:"user_id"`
	Details         map[string]string `json:"details,omitempty"`
}

// Domain types

type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsLeader   bool   `json:"is_leader"`
	IsObserver bool   `json:"is_observer"`
}

type RoundResult struct {
	Average    float64   `json:"average"`
	Mode       []float64 `json:"mode"`
	TotalVotes int       `json:"total_votes"`
}

type Round struct {
	ID          string             `json:"id"`
	Topic       string             `json:"topic"`
	TopicNumber int                `json:"topic_number"`
	IsOpen      bool               `json:"is_open"`
	Votes       map[string]float64 `json:"votes"`
	Result      *RoundResult       `json:"result"`
	CreatedAt   time.Time          `json:"created_at"`
	ClosedAt    *time.Time         `json:"closed_at,omitempty"`
}

// RoundHistoryItem is a frozen copy of a closed round
type RoundHistoryItem struct {
	ID          string             `json:"id"`
	Topic       string             `json:"topic"`
	TopicNumber int                `json:"topic_number"`
	Votes       map[string]float64 `json:"votes"`
	Result      RoundResult        `json:"result"`
	ClosedAt    time.Time          `json:"closed_at"`
}

// Room is the full aggregate. Users holds every member, leader included,
// in join order. History is newest first.
type Room struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	StoryLink         string             `json:"story_link,omitempty"`
	LeaderID          string             `json:"leader_id"`
	Users             []User             `json:"users"`
	CurrentRound      Round              `json:"current_round"`
	History           []RoundHistoryItem `json:"history"`
	IsActive          bool               `json:"is_active"`
	HasMoreTopics     bool               `json:"has_more_topics"`
	CurrentTopicCount int                `json:"current_topic_count"`
	MaxTopics         int                `json:"max_topics"`
	SessionID         string             `json:"session_id,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	ExpiresAt         time.Time          `json:"expires_at"`
}

// Leader returns the leader's member record, or nil if the aggregate is malformed
func (r *Room) Leader() *User {
	return r.User(r.LeaderID)
}

// User returns the member with the given id
func (r *Room) User(id string) *User {
	for i := range r.Users {
		if r.Users[i].ID == id {
			return &r.Users[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing a cached value
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	out := *r
	out.Users = append([]User(nil), r.Users...)
	out.CurrentRound = r.CurrentRound.clone()
	out.History = make([]RoundHistoryItem, len(r.History))
	for i, h := range r.History {
		h.Votes = cloneVotes(h.Votes)
		h.Result.Mode = append([]float64(nil), h.Result.Mode...)
		out.History[i] = h
	}
	return &out
}

func (r Round) clone() Round {
	r.Votes = cloneVotes(r.Votes)
	if r.Result != nil {
		res := *r.Result
		res.Mode = append([]float64(nil), r.Result.Mode...)
		r.Result = &res
	}
	if r.ClosedAt != nil {
		at := *r.ClosedAt
		r.ClosedAt = &at
	}
	return r
}

func cloneVotes(votes map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(votes))
	for k, v := range votes {
		out[k] = v
	}
	return out
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
}
