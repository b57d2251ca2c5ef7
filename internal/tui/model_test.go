package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/turing-station/backend/internal/client"
	"github.com/turing-station/backend/internal/handler/stream"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
)

type fakeAPI struct {
	asked   []string
	accused character.ID
}

func (f *fakeAPI) NewGame(context.Context) (client.NewGame, error) {
	return client.NewGame{
		SessionID:          "a1b2c3d4-0000",
		MaxQuestions:       2,
		RemainingQuestions: map[character.ID]int{character.Orbita: 2, character.Hex: 2},
	}, nil
}

func (f *fakeAPI) Agents(context.Context) ([]character.Summary, error) {
	return []character.Summary{
		{ID: character.Orbita, Name: "ORBITA"},
		{ID: character.Hex, Name: "HEX"},
	}, nil
}

func (f *fakeAPI) Greeting(_ context.Context, id character.ID) (string, error) {
	return "hello from " + string(id), nil
}

func (f *fakeAPI) Ask(_ context.Context, _ string, _ character.ID, message string, onFrame func(stream.Frame)) (stream.Frame, error) {
	f.asked = append(f.asked, message)
	onFrame(stream.Frame{Event: "delta", Content: "All "})
	onFrame(stream.Frame{Event: "delta", Content: "clear."})
	remaining := 1
	return stream.Frame{Event: "complete", FullText: "All clear.", RemainingQuestions: &remaining, Finished: true}, nil
}

func (f *fakeAPI) Accuse(_ context.Context, _ string, suspect character.ID) (game.Verdict, error) {
	f.accused = suspect
	return game.Verdict{SuspectID: suspect, IsCorrect: suspect == character.Hex, ActualKiller: character.Hex}, nil
}

func (f *fakeAPI) End(context.Context, string) (game.Reveal, error) {
	return game.Reveal{Killer: character.Hex}, nil
}

func ready(t *testing.T, api *fakeAPI) Model {
	t.Helper()
	m := NewModel(context.Background(), api)
	msg := m.startGame()()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = updated.(Model)
	}
	return m
}

// drive feeds cmd results back into the model until the turn settles.
func drive(m Model, cmd tea.Cmd) Model {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		var updated tea.Model
		updated, cmd = m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func TestStartGameLoadsRosterAndGreetings(t *testing.T) {
	m := ready(t, &fakeAPI{})
	if m.sessionID == "" || len(m.agents) != 2 || m.maxQuestions != 2 {
		t.Fatalf("unexpected model after ready: %+v", m.agents)
	}
	if got := m.transcripts[character.Hex]; len(got) != 1 || got[0].text != "hello from HEX" {
		t.Fatalf("expected greeting in transcript, got %+v", got)
	}
	if !strings.Contains(m.View(), "ORBITA 2/2") {
		t.Fatalf("expected quota tab in view:\n%s", m.View())
	}
}

func TestAskStreamsReplyIntoTranscript(t *testing.T) {
	api := &fakeAPI{}
	m := ready(t, api)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updated.(Model)
	m = typeText(m, "Where were you?")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = drive(updated.(Model), cmd)

	if len(api.asked) != 1 || api.asked[0] != "Where were you?" {
		t.Fatalf("unexpected questions: %v", api.asked)
	}
	lines := m.transcripts[character.Hex]
	if len(lines) != 3 || lines[1].sender != game.SenderPlayer || lines[2].text != "All clear." {
		t.Fatalf("unexpected transcript: %+v", lines)
	}
	if m.remaining[character.Hex] != 1 || m.asking != "" {
		t.Fatalf("turn not settled: remaining=%d asking=%q", m.remaining[character.Hex], m.asking)
	}
}

func TestAccuseCommand(t *testing.T) {
	api := &fakeAPI{}
	m := ready(t, api)
	m = typeText(m, "/accuse hex")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = drive(updated.(Model), cmd)

	if api.accused != character.Hex || !m.finished || !strings.Contains(m.outcome, "CASE SOLVED") {
		t.Fatalf("unexpected outcome: accused=%s finished=%t outcome=%q", api.accused, m.finished, m.outcome)
	}
}

func TestQuotaErrorZeroesRemaining(t *testing.T) {
	m := ready(t, &fakeAPI{})
	m.asking = character.Orbita
	m.finishTurn(turnDoneMsg{id: character.Orbita, err: &client.APIError{Status: 403, Message: "Agent has reached maximum questions limit"}})
	if m.remaining[character.Orbita] != 0 || m.asking != "" || m.err != nil {
		t.Fatalf("unexpected state: %+v", m.remaining)
	}

	m.finishTurn(turnDoneMsg{id: character.Orbita, err: errors.New("connection refused")})
	if m.err == nil {
		t.Fatalf("expected transport error to surface")
	}
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in, cmd, arg string
	}{
		{"Where were you?", "", ""},
		{"/accuse  Hex ", "accuse", "Hex"},
		{"/END", "end", ""},
	}
	for _, tc := range cases {
		cmd, arg := parseCommand(tc.in)
		if cmd != tc.cmd || arg != tc.arg {
			t.Fatalf("parseCommand(%q) = %q, %q", tc.in, cmd, arg)
		}
	}
}
