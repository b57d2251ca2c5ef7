package character

import (
	"errors"
	"fmt"
)

// ErrInvalidRoster signals a cast that cannot back a game.
var ErrInvalidRoster = errors.New("invalid character roster")

// Store exposes read access to the cast for services and handlers.
type Store interface {
	List() []Character
	FindByID(id ID) (Character, bool)
	Scenario(id ID) (Scenario, bool)
	Greeting(id ID) (string, bool)
	IDs() []ID
}

// Roster is the immutable, in-memory cast definition.
type Roster struct {
	items     []Character
	index     map[ID]int
	scenarios map[ID]Scenario
	greetings map[ID]string
}

// NewRoster validates that every character has exactly one scenario and one
// greeting, and that no scenario or greeting refers to an unknown character.
func NewRoster(items []Character, scenarios map[ID]Scenario, greetings map[ID]string) (*Roster, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no characters", ErrInvalidRoster)
	}

	r := &Roster{
		items:     append([]Character(nil), items...),
		index:     make(map[ID]int, len(items)),
		scenarios: make(map[ID]Scenario, len(items)),
		greetings: make(map[ID]string, len(items)),
	}

	for i, c := range r.items {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: character at index %d has empty id", ErrInvalidRoster, i)
		}
		if _, dup := r.index[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate character %s", ErrInvalidRoster, c.ID)
		}
		r.index[c.ID] = i

		scenario, ok := scenarios[c.ID]
		if !ok {
			return nil, fmt.Errorf("%w: character %s has no murder scenario", ErrInvalidRoster, c.ID)
		}
		r.scenarios[c.ID] = scenario

		greeting, ok := greetings[c.ID]
		if !ok || greeting == "" {
			return nil, fmt.Errorf("%w: character %s has no greeting", ErrInvalidRoster, c.ID)
		}
		r.greetings[c.ID] = greeting
	}

	for id := range scenarios {
		if _, ok := r.index[id]; !ok {
			return nil, fmt.Errorf("%w: scenario for unknown character %s", ErrInvalidRoster, id)
		}
	}
	for id := range greetings {
		if _, ok := r.index[id]; !ok {
			return nil, fmt.Errorf("%w: greeting for unknown character %s", ErrInvalidRoster, id)
		}
	}

	return r, nil
}

// Default returns the built-in Turing Station cast.
func Default() *Roster {
	r, err := NewRoster(Seed(), SeedScenarios(), SeedGreetings())
	if err != nil {
		panic(err)
	}
	return r
}

// List returns a copy of the cast in display order.
func (r *Roster) List() []Character {
	return append([]Character(nil), r.items...)
}

// FindByID returns the matching character if present.
func (r *Roster) FindByID(id ID) (Character, bool) {
	i, ok := r.index[id]
	if !ok {
		return Character{}, false
	}
	return r.items[i], true
}

func (r *Roster) Scenario(id ID) (Scenario, bool) {
	s, ok := r.scenarios[id]
	return s, ok
}

func (r *Roster) Greeting(id ID) (string, bool) {
	g, ok := r.greetings[id]
	return g, ok
}

// IDs returns the cast identifiers in display order.
func (r *Roster) IDs() []ID {
	ids := make([]ID, len(r.items))
	for i, c := range r.items {
		ids[i] = c.ID
	}
	return ids
}
