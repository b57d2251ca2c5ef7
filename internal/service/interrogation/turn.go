package interrogation

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/turing-station/backend/internal/model/character"
)

type EventKind string

const (
	EventDelta    EventKind = "delta"
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// Completion is the terminal record of a successful turn.
type Completion struct {
	FullText      string `json:"fullText"`
	QuestionCount int    `json:"questionCount"`
	Remaining     int    `json:"remainingQuestions"`
	CanAsk        bool   `json:"canAsk"`
}

// Event is one element of a turn's sequence: any number of deltas followed by
// exactly one complete or error event.
type Event struct {
	Kind       EventKind
	Text       string
	Completion *Completion
	Err        error
}

// Turn is one in-flight question. Its events can be consumed once.
type Turn struct {
	SessionID     string
	CharacterID   character.ID
	QuestionCount int
	Remaining     int

	events      chan Event
	abandoned   chan struct{}
	abandonOnce sync.Once
	done        chan struct{}
	consumed    atomic.Bool
}

func newTurn(sessionID string, id character.ID, count, remaining int) *Turn {
	return &Turn{
		SessionID:     sessionID,
		CharacterID:   id,
		QuestionCount: count,
		Remaining:     remaining,
		events:        make(chan Event, 16),
		abandoned:     make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Events yields fragments in arrival order, then the terminal event. Breaking
// out of the loop abandons the turn; the provider call still runs to the end.
// A second call yields nothing.
func (t *Turn) Events() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		if !t.consumed.CompareAndSwap(false, true) {
			return
		}
		defer t.Abandon()
		for ev := range t.events {
			if !yield(ev) {
				return
			}
		}
	}
}

// Abandon stops relaying. Safe to call more than once.
func (t *Turn) Abandon() {
	t.abandonOnce.Do(func() { close(t.abandoned) })
}

// Done is closed once the reply is recorded (or the provider failed).
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

func (t *Turn) Wait() {
	<-t.done
}

// send reports false once the consumer is gone.
func (t *Turn) send(ev Event) bool {
	select {
	case <-t.abandoned:
		return false
	default:
	}
	select {
	case t.events <- ev:
		return true
	case <-t.abandoned:
		return false
	}
}
