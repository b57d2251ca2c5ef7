package character

import "strings"

// ID identifies one of the station AIs under interrogation.
type ID string

const (
	Orbita ID = "ORBITA"
	Aris   ID = "ARIS"
	Hex    ID = "HEX"
	Luma   ID = "LUMA"
	Dael   ID = "DAEL"
)

// IDs lists the full cast in display order.
var IDs = []ID{Orbita, Aris, Hex, Luma, Dael}

// Valid reports whether id belongs to the cast.
func (id ID) Valid() bool {
	for _, known := range IDs {
		if id == known {
			return true
		}
	}
	return false
}

// ParseID normalises raw client input ("hex", " Hex ") into a cast ID.
func ParseID(raw string) (ID, bool) {
	id := ID(strings.ToUpper(strings.TrimSpace(raw)))
	return id, id.Valid()
}

// Character captures the role-playing attributes fed into prompts.
type Character struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	System      string `json:"system"`
	Personality string `json:"personality"`
	Description string `json:"description"`
	Backstory   string `json:"backstory"`
	Alibi       string `json:"alibi"`
	Suspicions  string `json:"suspicions"`
	Color       string `json:"color,omitempty"`
}

// Summary is the public view of a character. It never carries guilt.
type Summary struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	System      string `json:"system"`
	Description string `json:"description"`
	Color       string `json:"color,omitempty"`
}

// Summary strips the prompt-only fields.
func (c Character) Summary() Summary {
	return Summary{
		ID:          c.ID,
		Name:        c.Name,
		System:      c.System,
		Description: c.Description,
		Color:       c.Color,
	}
}

// Scenario describes how a character committed the murder when it is the killer.
type Scenario struct {
	Method   string `json:"method"`
	Details  string `json:"details"`
	Motive   string `json:"motive"`
	Evidence string `json:"evidence"`
}
