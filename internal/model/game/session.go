package game

import (
	"context"
	"sync"
	"time"

	"github.com/turing-station/backend/internal/model/character"
)

// Session guards one State with its own lock. Turns on different sessions
// never contend with each other.
type Session struct {
	mu    sync.Mutex
	id    string
	state State
	turns map[character.ID]chan struct{}
}

// New wraps a freshly created state.
func New(state State) *Session {
	return &Session{id: state.ID, state: state, turns: make(map[character.ID]chan struct{})}
}

// Restore rebuilds a session from a snapshot after validating it.
func Restore(snapshot State) (*Session, error) {
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return New(snapshot.Clone()), nil
}

// ID is immutable and safe to read without the lock.
func (s *Session) ID() string { return s.id }

// Do runs fn while holding the session lock. fn must not block on I/O.
func (s *Session) Do(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

// Touch refreshes LastActivity.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.state.touch(now)
	s.mu.Unlock()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastActivity
}

// Snapshot returns a deep copy of the current state, killer included.
// It is meant for archives and tests, not for client responses.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Summary()
}

// Killer is only for reveal paths (end, verdict) and server-side logging.
func (s *Session) Killer() character.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Killer
}

// AcquireTurn reserves the conversation slot of one character so that turns
// against the same character run one after another. The session lock is not
// held while waiting. The returned release func must be called exactly once.
func (s *Session) AcquireTurn(ctx context.Context, id character.ID) (func(), error) {
	s.mu.Lock()
	gate, ok := s.turns[id]
	if !ok {
		gate = make(chan struct{}, 1)
		s.turns[id] = gate
	}
	s.mu.Unlock()

	select {
	case gate <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-gate }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
