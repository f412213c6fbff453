// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/deliberating-room/apperr"
	"github.com/danielhkuo/deliberating-room/db"
)

const (
	pingInterval = 90 * time.Second
	connectGrace = 3 * time.Second
)

var ErrRoomRequired = apperr.New(apperr.Validation, "room id is required")

// Listener is the subset of *pq.Listener the notifier drives
type Listener interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

var _ Listener = (*pq.Listener)(nil)

// Mode names the active delivery strategy
type Mode string

const (
	ModePending Mode = "pending"
	ModePush    Mode = "push"
	ModePoll    Mode = "poll"
)

// Notifier fans room change events out to subscribers. It delivers remote
// notifications while the listener is healthy and falls back to polling
// every subscriber on a fixed interval once it is not.
type Notifier struct {
	listener Listener
	interval time.Duration
	grace    time.Duration

	mu   sync.Mutex
	mode Mode
	hub  map[string]map[*subscription]struct{}
}

// New builds a notifier. A nil listener means polling from the start.
func New(listener Listener, interval time.Duration) *Notifier {
	return &Notifier{
		listener: listener,
		interval: interval,
		grace:    connectGrace,
		mode:     ModePending,
		hub:      make(map[string]map[*subscription]struct{}),
	}
}

// Mode reports the current delivery strategy
func (n *Notifier) Mode() Mode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode
}

// Run listens for remote change events until ctx is done. It returns nil
// after degrading to polling rather than failing the process.
//
// Listen blocks until the listener has a connection, so it runs on its own
// goroutine. Subscribers are polled until it returns and are moved back to
// push once it succeeds. Closing the listener on exit releases a Listen
// still waiting to connect.
func (n *Notifier) Run(ctx context.Context) error {
	if n.listener == nil {
		n.degrade("no remote listener")
		<-ctx.Done()
		return nil
	}
	defer n.listener.Close()

	listening := make(chan error, 1)
	go func() {
		listening <- n.listener.Listen(db.NotifyChannel)
	}()

	grace := time.NewTimer(n.grace)
	defer grace.Stop()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	// nil until Listen succeeds; a nil channel never fires
	var events <-chan *pq.Notification
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-grace.C:
			if events == nil {
				n.degrade("listener not connected")
			}
		case err := <-listening:
			if err != nil {
				slog.Warn("change subscription failed", "channel", db.NotifyChannel, "error", err)
				n.degrade("listen failed")
				continue
			}
			events = n.listener.NotificationChannel()
			n.promote()
			slog.Info("listening for room changes", "channel", db.NotifyChannel)
		case note, ok := <-events:
			if !ok {
				n.degrade("notification channel closed")
				events = nil
				continue
			}
			if note == nil {
				// reconnected; anything may have changed meanwhile
				n.promote()
				n.broadcast()
				continue
			}
			n.dispatch(strings.TrimSpace(note.Extra))
		case <-ping.C:
			if events == nil {
				continue
			}
			go func() {
				if err := n.listener.Ping(); err != nil {
					slog.Warn("change listener ping failed", "error", err)
				}
			}()
		}
	}
}

// ListenerEvent is the pq.Listener event callback. Losing the connection
// degrades to polling; Run restores push on the reconnect notification.
func (n *Notifier) ListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventDisconnected:
		slog.Warn("change listener disconnected", "error", err)
		n.degrade("listener disconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		slog.Warn("change listener connection attempt failed", "error", err)
		n.degrade("listener not connected")
	}
}

// Subscribe registers onChange for roomID. The returned function removes
// the subscription and may be called any number of times. The subscription
// also ends when ctx is done.
func (n *Notifier) Subscribe(ctx context.Context, roomID string, onChange func()) (func(), error) {
	if roomID == "" {
		return nil, ErrRoomRequired
	}
	sub := &subscription{roomID: roomID, onChange: onChange}

	n.mu.Lock()
	if n.hub[roomID] == nil {
		n.hub[roomID] = make(map[*subscription]struct{})
	}
	n.hub[roomID][sub] = struct{}{}
	if n.mode == ModePoll {
		sub.startPolling(n.interval)
	}
	n.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.hub[roomID], sub)
			if len(n.hub[roomID]) == 0 {
				delete(n.hub, roomID)
			}
			n.mu.Unlock()
			sub.stopPolling()
		})
	}
	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}, nil
}

// Publish notifies local subscribers of roomID directly. Used for writes
// no remote event will announce.
func (n *Notifier) Publish(roomID string) {
	n.dispatch(roomID)
}

// Subscribers reports how many subscriptions roomID has
func (n *Notifier) Subscribers(roomID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.hub[roomID])
}

// degrade switches every live subscription to polling
func (n *Notifier) degrade(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.mode == ModePoll {
		return
	}
	n.mode = ModePoll
	for _, subs := range n.hub {
		for sub := range subs {
			sub.startPolling(n.interval)
		}
	}
	slog.Warn("room change delivery degraded to polling", "reason", reason, "interval", n.interval)
}

// promote moves every subscription back to remote events
func (n *Notifier) promote() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.mode == ModePush {
		return
	}
	restored := n.mode == ModePoll
	n.mode = ModePush
	for _, subs := range n.hub {
		for sub := range subs {
			sub.stopPolling()
		}
	}
	if restored {
		slog.Info("room change delivery restored to push")
	}
}

func (n *Notifier) dispatch(roomID string) {
	for _, sub := range n.snapshot(roomID) {
		sub.onChange()
	}
}

func (n *Notifier) broadcast() {
	for _, sub := range n.snapshot("") {
		sub.onChange()
	}
}

// snapshot copies the subscribers of roomID, or of every room when roomID
// is empty, so callbacks run without the lock held.
func (n *Notifier) snapshot(roomID string) []*subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []*subscription
	for id, subs := range n.hub {
		if roomID != "" && id != roomID {
			continue
		}
		for sub := range subs {
			out = append(out, sub)
		}
	}
	return out
}
