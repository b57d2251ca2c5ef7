package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/turing-station/backend/internal/model/character"
)

var (
	// ErrInvalidPhase reports an operation the current phase does not allow.
	ErrInvalidPhase = errors.New("operation not allowed in current phase")
	// ErrInvalidState reports a snapshot that cannot be restored.
	ErrInvalidState = errors.New("invalid session state")
)

// State is the full mutable record of one investigation. It is a plain data
// holder: it does not lock and does not enforce the quota on RecordQuestion.
type State struct {
	ID             string                   `json:"id"`
	Killer         character.ID             `json:"killer"`
	MaxQuestions   int                      `json:"maxQuestions"`
	QuestionCounts map[character.ID]int     `json:"questionCounts"`
	ChatHistory    map[character.ID][]Entry `json:"chatHistory"`
	Phase          Phase                    `json:"gamePhase"`
	Accused        character.ID             `json:"accused,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	LastActivity   time.Time                `json:"lastActivity"`
	IsActive       bool                     `json:"isActive"`
}

// NewState zero-initialises quotas and transcripts for every id in cast.
func NewState(id string, killer character.ID, cast []character.ID, maxQuestions int, now time.Time) State {
	st := State{
		ID:             id,
		Killer:         killer,
		MaxQuestions:   maxQuestions,
		QuestionCounts: make(map[character.ID]int, len(cast)),
		ChatHistory:    make(map[character.ID][]Entry, len(cast)),
		Phase:          PhaseInvestigation,
		CreatedAt:      now,
		LastActivity:   now,
		IsActive:       true,
	}
	for _, c := range cast {
		st.QuestionCounts[c] = 0
		st.ChatHistory[c] = []Entry{}
	}
	return st
}

func (s *State) CanAsk(id character.ID) bool {
	return s.QuestionCounts[id] < s.MaxQuestions
}

// RecordQuestion charges one question against id. Callers check CanAsk first.
func (s *State) RecordQuestion(id character.ID, now time.Time) {
	if s.QuestionCounts == nil {
		s.QuestionCounts = make(map[character.ID]int)
	}
	s.QuestionCounts[id]++
	s.touch(now)
}

// AppendMessage adds an entry to the transcript of id, creating it if unseen.
func (s *State) AppendMessage(id character.ID, sender Sender, text string, ts time.Time) {
	if s.ChatHistory == nil {
		s.ChatHistory = make(map[character.ID][]Entry)
	}
	s.ChatHistory[id] = append(s.ChatHistory[id], Entry{Sender: sender, Message: text, Timestamp: ts})
	s.touch(ts)
}

func (s *State) Remaining(id character.ID) int {
	return max(0, s.MaxQuestions-s.QuestionCounts[id])
}

func (s *State) IsKiller(id character.ID) bool {
	return s.Killer == id
}

// Recent returns a copy of the last n transcript entries for id.
func (s *State) Recent(id character.ID, n int) []Entry {
	history := s.ChatHistory[id]
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	return append([]Entry(nil), history...)
}

// Transcript returns a copy of the whole transcript for id.
func (s *State) Transcript(id character.ID) []Entry {
	return s.Recent(id, 0)
}

// TotalQuestions sums the questions asked across the cast.
func (s *State) TotalQuestions() int {
	total := 0
	for _, n := range s.QuestionCounts {
		total += n
	}
	return total
}

// BeginAccusation closes the investigation so no further questions are accepted.
func (s *State) BeginAccusation(now time.Time) error {
	if s.Phase != PhaseInvestigation {
		return fmt.Errorf("%w: cannot start accusation during %s", ErrInvalidPhase, s.Phase)
	}
	s.Phase = PhaseAccusation
	s.touch(now)
	return nil
}

// RecordAccusation scores the player's guess and moves the session to verdict.
// An unknown suspect is simply wrong. The real killer's scenario is always returned.
func (s *State) RecordAccusation(suspect character.ID, cast character.Store, now time.Time) (Verdict, error) {
	if s.Phase != PhaseInvestigation && s.Phase != PhaseAccusation {
		return Verdict{}, fmt.Errorf("%w: cannot accuse during %s", ErrInvalidPhase, s.Phase)
	}
	s.Phase = PhaseVerdict
	s.Accused = suspect
	s.touch(now)

	scenario, _ := cast.Scenario(s.Killer)
	return Verdict{
		SuspectID:    suspect,
		IsCorrect:    suspect == s.Killer,
		ActualKiller: s.Killer,
		Scenario:     scenario,
		Phase:        s.Phase,
	}, nil
}

// End deactivates the session. It is reachable from every phase.
func (s *State) End(now time.Time) {
	s.Phase = PhaseEnded
	s.IsActive = false
	s.touch(now)
}

// Summary builds the public view.
func (s *State) Summary() Summary {
	counts := make(map[character.ID]int, len(s.QuestionCounts))
	remaining := make(map[character.ID]int, len(s.QuestionCounts))
	for id, n := range s.QuestionCounts {
		counts[id] = n
		remaining[id] = s.Remaining(id)
	}
	return Summary{
		ID:                 s.ID,
		Phase:              s.Phase,
		QuestionCounts:     counts,
		RemainingQuestions: remaining,
		MaxQuestions:       s.MaxQuestions,
		CreatedAt:          s.CreatedAt,
		LastActivity:       s.LastActivity,
		IsActive:           s.IsActive,
	}
}

// Outcome builds the archive record of the case as it stands.
func (s *State) Outcome(now time.Time) Outcome {
	clone := s.Clone()
	return Outcome{
		SessionID:      s.ID,
		Killer:         s.Killer,
		Accused:        s.Accused,
		Solved:         s.Accused != "" && s.Accused == s.Killer,
		Phase:          s.Phase,
		TotalQuestions: s.TotalQuestions(),
		CreatedAt:      s.CreatedAt,
		ClosedAt:       now,
		Transcript:     clone.ChatHistory,
	}
}

// Clone deep-copies the state so the copy shares no maps or slices.
func (s *State) Clone() State {
	out := *s
	out.QuestionCounts = make(map[character.ID]int, len(s.QuestionCounts))
	for id, n := range s.QuestionCounts {
		out.QuestionCounts[id] = n
	}
	out.ChatHistory = make(map[character.ID][]Entry, len(s.ChatHistory))
	for id, entries := range s.ChatHistory {
		out.ChatHistory[id] = append([]Entry{}, entries...)
	}
	return out
}

// Validate checks the invariants a restored snapshot must satisfy.
func (s *State) Validate() error {
	switch {
	case s.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidState)
	case s.Killer == "":
		return fmt.Errorf("%w: no killer", ErrInvalidState)
	case s.MaxQuestions <= 0:
		return fmt.Errorf("%w: max questions must be positive", ErrInvalidState)
	case !s.Phase.Valid():
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidState, s.Phase)
	case s.IsActive == (s.Phase == PhaseEnded):
		return fmt.Errorf("%w: isActive=%t contradicts phase %s", ErrInvalidState, s.IsActive, s.Phase)
	}
	if _, ok := s.QuestionCounts[s.Killer]; !ok {
		return fmt.Errorf("%w: killer %s is not part of the cast", ErrInvalidState, s.Killer)
	}
	for id, n := range s.QuestionCounts {
		if n < 0 || n > s.MaxQuestions {
			return fmt.Errorf("%w: question count %d for %s out of range", ErrInvalidState, n, id)
		}
	}
	return nil
}

// touch moves LastActivity forward, never backward.
func (s *State) touch(now time.Time) {
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}
