package game

// Phase is the coarse stage of one investigation. Transitions only move forward.
type Phase string

const (
	PhaseInvestigation Phase = "investigation"
	PhaseAccusation    Phase = "accusation"
	PhaseVerdict       Phase = "verdict"
	PhaseEnded         Phase = "ended"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseInvestigation, PhaseAccusation, PhaseVerdict, PhaseEnded:
		return true
	}
	return false
}

// Sender identifies who produced a transcript entry.
type Sender string

const (
	SenderPlayer Sender = "player"
	SenderAgent  Sender = "agent"
	SenderSystem Sender = "system"
)
