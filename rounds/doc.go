// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package rounds holds the pure room state machine and the result aggregator.

Nothing here touches storage. Both persistence backends load a room, apply
one of these transitions, then write the outcome back, so the rules are the
same on every path.

# Transitions

	open  --CastVote-->   open (vote upserted)
	open  --CloseRound--> closed (result frozen, history prepended)
	closed --StartRound--> open (topic count + 1)

CastVote against a stale or closed round is a silent no-op. CloseRound needs
at least one vote. StartRound refuses while the current round is open, after
MarkNoMoreTopics, or past the topic ceiling.

# Results

ComputeResult returns the arithmetic mean without rounding and every value
tied for highest frequency. Vote values are fed to it in member join order.
*/
package rounds
