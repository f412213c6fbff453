// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Domain Types

The Room aggregate is denormalized: it carries its members, the current
round with its votes, and the closed-round history.

  - Room: title, story link, leader id, members, current round, history,
    topic counter and ceiling, "more topics expected" flag
  - User: display name plus leader and observer flags
  - Round: topic, topic number, open flag, per-user votes, result once closed
  - RoundResult: average, mode (all tied values), total votes
  - RoundHistoryItem: frozen snapshot of a closed round

Room.Clone returns a deep copy. Both storage backends hand out clones so a
caller never mutates cached state by accident.

# Request Types

  - CreateRoomRequest: title, story_link, leader_name, topic, session_id
  - JoinRoomRequest: name
  - CastVoteRequest: user_id, round_id, value
  - StartRoundRequest: topic
  - ObserverRequest: isObserver (camelCase, stable cross-process contract)

# Response Types

  - CreateRoomResponse: room_id, user_id, leader_key
  - JoinRoomResponse: user_id, room_id, is_new_user
  - StartRoundResponse: round_id, topic, topic_number
  - ObserverResponse: success, error
  - RoomCheckResponse, RoomStatusResponse: existence probes
  - Diagnostics: room_exists, local_cache_works, remote_reachable, user_in_room
  - CleanupResponse: purge counts
  - ErrorResponse: error, message, kind

# Constants

	DefaultMaxTopics = 10
	RoomCodeLength   = 6
	EventRoomChanged = "room_changed"
*/
package models
