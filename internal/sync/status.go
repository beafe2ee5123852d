// Package sync replays queued offline mutations against the remote backend
// and publishes the aggregate sync status.
package sync

import "sync"

// Status is the process-wide sync lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// StatusStore holds the current Status and fans changes out to subscribers.
// Pure state container; only the Engine mutates it. The success banner's
// auto-hide is a presentation-layer timer, not a store transition.
type StatusStore struct {
	mu     sync.RWMutex
	status Status
	subs   map[int]chan Status
	nextID int
}

// NewStatusStore creates a store in StatusIdle.
func NewStatusStore() *StatusStore {
	return &StatusStore{
		status: StatusIdle,
		subs:   make(map[int]chan Status),
	}
}

// Get returns the current status.
func (s *StatusStore) Get() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Set updates the status and notifies subscribers. A subscriber that has
// fallen behind misses intermediate states rather than blocking the sender.
func (s *StatusStore) Set(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	for _, ch := range s.subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// Subscribe returns a channel receiving status changes and a cancel
// function that must be called to release the subscription.
func (s *StatusStore) Subscribe() (<-chan Status, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	ch := make(chan Status, 8)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
	return ch, cancel
}
