// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"sync"
	"time"
)

type subscription struct {
	roomID   string
	onChange func()

	mu   sync.Mutex
	stop chan struct{}
}

// startPolling fires onChange every interval until stopPolling.
// Calling it on a polling subscription does nothing.
func (s *subscription) startPolling(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	stop := make(chan struct{})
	s.stop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.onChange()
			}
		}
	}()
}

func (s *subscription) stopPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}
