// Package store holds the application state. State changes only through
// dispatched events, applied one at a time.
package store

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vadiminshakov/l2pay/internal/events"
)

// Change published to subscribers after an event was applied.
type Change struct {
	Event Event
	State State
}

// Store serializes event dispatch and publishes resulting states.
type Store struct {
	l     *zap.Logger
	mu    sync.Mutex
	state State
	seq   atomic.Uint64
	subs  *events.Broadcaster[Change]
}

// New creates an empty store.
func New(l *zap.Logger) *Store {
	return &Store{
		l:     l,
		state: State{Epoch: 1},
		subs:  events.NewBroadcaster[Change](256),
	}
}

// Begin issues a ticket for a new workflow run.
func (s *Store) Begin() Ticket {
	s.mu.Lock()
	epoch := s.state.Epoch
	s.mu.Unlock()
	return Ticket{Epoch: epoch, Seq: s.seq.Add(1)}
}

// Dispatch applies e and notifies subscribers. It returns false when e was
// discarded as stale.
func (s *Store) Dispatch(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, applied := Reduce(s.state, e)
	if !applied {
		s.l.Debug("discarded stale event", zap.String("event", string(e.Type())))
		return false
	}

	s.state = next
	s.subs.Publish(Change{Event: e, State: next})
	return true
}

// State returns the current state snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel receiving every applied change.
func (s *Store) Subscribe() chan Change {
	return s.subs.Subscribe()
}

// Unsubscribe stops delivery to ch and closes it.
func (s *Store) Unsubscribe(ch chan Change) {
	s.subs.Unsubscribe(ch)
}
