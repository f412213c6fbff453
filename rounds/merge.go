// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rounds

import (
	"sort"

	"github.com/danielhkuo/deliberating-room/models"
)

// Merge folds writes recorded against a cached copy (local) into the stored
// room (base) and returns the combined room. Neither input is modified.
//
// A round closed in base stays exactly as base has it. A round closed only
// in local is taken from local. Votes on a round open in both are combined
// with local values winning. When both sides opened different rounds under
// the same topic number, base's round is kept and local's is dropped.
func Merge(base, local *models.Room) *models.Room {
	if base == nil {
		return local.Clone()
	}
	out := base.Clone()
	if local == nil {
		return out
	}

	out.HasMoreTopics = base.HasMoreTopics && local.HasMoreTopics

	for _, lu := range local.Users {
		if u := out.User(lu.ID); u != nil {
			u.IsObserver = lu.IsObserver
			continue
		}
		lu.IsLeader = false
		out.Users = append(out.Users, lu)
	}

	merged := map[string]models.Round{}
	for _, r := range allRounds(base) {
		merged[r.ID] = r
	}
	for _, lr := range allRounds(local) {
		br, ok := merged[lr.ID]
		switch {
		case !ok:
			merged[lr.ID] = lr
		case !br.IsOpen:
			// closed remotely; never reopened or rewritten
		case !lr.IsOpen:
			merged[lr.ID] = lr
		default:
			for uid, v := range lr.Votes {
				br.Votes[uid] = v
			}
			merged[lr.ID] = br
		}
	}

	// one round per topic number, base wins ties
	baseIDs := map[string]bool{}
	for _, r := range allRounds(base) {
		baseIDs[r.ID] = true
	}
	byNumber := map[int]models.Round{}
	for _, r := range merged {
		prev, taken := byNumber[r.TopicNumber]
		if !taken || (baseIDs[r.ID] && !baseIDs[prev.ID]) {
			byNumber[r.TopicNumber] = r
		}
	}

	ordered := make([]models.Round, 0, len(byNumber))
	for _, r := range byNumber {
		ordered = append(ordered, r)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].TopicNumber > ordered[j].TopicNumber })

	out.CurrentRound = ordered[0]
	out.History = out.History[:0]
	for _, r := range ordered {
		// open rounds behind the current one came from a diverged copy
		if r.IsOpen {
			continue
		}
		out.History = append(out.History, historyItem(r))
	}

	out.CurrentTopicCount = max(base.CurrentTopicCount, local.CurrentTopicCount, out.CurrentRound.TopicNumber)
	return out
}

// allRounds lists the current round followed by history rounds not already listed
func allRounds(room *models.Room) []models.Round {
	c := room.Clone()
	list := []models.Round{c.CurrentRound}
	for _, h := range c.History {
		if h.ID == c.CurrentRound.ID {
			continue
		}
		result := h.Result
		closedAt := h.ClosedAt
		list = append(list, models.Round{
			ID:          h.ID,
			Topic:       h.Topic,
			TopicNumber: h.TopicNumber,
			IsOpen:      false,
			Votes:       h.Votes,
			Result:      &result,
			ClosedAt:    &closedAt,
		})
	}
	return list
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
	}
	if r.ClosedAt != nil {
		item.ClosedAt = *r.ClosedAt
	}
	return item
}
