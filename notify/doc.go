// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package notify delivers "room changed" signals to subscribers.

Two strategies exist. Push: the remote store announces every write with
pg_notify on the room_changes channel (payload is the room id) and Run
relays each notification to that room's subscribers. Poll: each
subscription gets its own ticker and its callback fires every interval
whether or not anything changed; callers re-fetch and diff.

Listen blocks until the listener has a connection, so Run calls it on a
separate goroutine. Subscribers poll until LISTEN succeeds (after a short
grace period, or at once on a failed connection attempt) and move to push
afterwards. LISTEN failing, the notification channel closing, or a
disconnect event degrades every live subscription to polling. A nil
notification (listener reconnect) restores push and fires every subscriber.

	n := notify.New(pq.NewListener(url, time.Second, time.Minute, nil), 5*time.Second)
	go n.Run(ctx)
	unsubscribe, err := n.Subscribe(ctx, roomID, func() { ... })
	defer unsubscribe()

ListenerEvent is meant as the pq.Listener event callback. The listener
dials as soon as it is built, so main hands events over only once the
notifier exists.

Publish fires local subscribers directly. The store uses it for writes
served by the local cache, which the remote never saw.

Callbacks run on the notifier's goroutines and must not block.
*/
package notify
