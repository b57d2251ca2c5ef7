package game

import (
	"time"

	"github.com/turing-station/backend/internal/model/character"
)

// Entry is one line of a character transcript.
type Entry struct {
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is the public view of a session. It never carries the killer.
type Summary struct {
	ID                 string               `json:"id"`
	Phase              Phase                `json:"gamePhase"`
	QuestionCounts     map[character.ID]int `json:"questionCounts"`
	RemainingQuestions map[character.ID]int `json:"remainingQuestions"`
	MaxQuestions       int                  `json:"maxQuestions"`
	CreatedAt          time.Time            `json:"createdAt"`
	LastActivity       time.Time            `json:"lastActivity"`
	IsActive           bool                 `json:"isActive"`
}

// Verdict is the result of the player's accusation.
type Verdict struct {
	SuspectID    character.ID       `json:"suspectId"`
	IsCorrect    bool               `json:"isCorrect"`
	ActualKiller character.ID       `json:"actualKiller"`
	Scenario     character.Scenario `json:"scenario"`
	Phase        Phase              `json:"gamePhase"`
}

// Reveal is returned when a session is ended explicitly.
type Reveal struct {
	Killer   character.ID       `json:"killer"`
	Scenario character.Scenario `json:"scenario"`
	Session  Summary            `json:"session"`
}

// Outcome is the archived record of a closed case.
type Outcome struct {
	SessionID      string                   `json:"sessionId"`
	Killer         character.ID             `json:"killer"`
	Accused        character.ID             `json:"accused,omitempty"`
	Solved         bool                     `json:"solved"`
	Phase          Phase                    `json:"phase"`
	TotalQuestions int                      `json:"totalQuestions"`
	CreatedAt      time.Time                `json:"createdAt"`
	ClosedAt       time.Time                `json:"closedAt"`
	Transcript     map[character.ID][]Entry `json:"transcript"`
}
