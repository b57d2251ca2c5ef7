// Package tui is the terminal detective client.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/turing-station/backend/internal/client"
	"github.com/turing-station/backend/internal/handler/stream"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
)

// API is the subset of the server the client needs.
type API interface {
	NewGame(ctx context.Context) (client.NewGame, error)
	Agents(ctx context.Context) ([]character.Summary, error)
	Greeting(ctx context.Context, id character.ID) (string, error)
	Ask(ctx context.Context, sessionID string, id character.ID, message string, onFrame func(stream.Frame)) (stream.Frame, error)
	Accuse(ctx context.Context, sessionID string, suspect character.ID) (game.Verdict, error)
	End(ctx context.Context, sessionID string) (game.Reveal, error)
}

type line struct {
	sender game.Sender
	text   string
}

type (
	readyMsg struct {
		game      client.NewGame
		agents    []character.Summary
		greetings map[character.ID]string
	}
	deltaMsg struct {
		id   character.ID
		text string
	}
	turnDoneMsg struct {
		id    character.ID
		frame stream.Frame
		err   error
	}
	verdictMsg struct{ verdict game.Verdict }
	revealMsg  struct{ reveal game.Reveal }
	errMsg     struct{ err error }
)

type Model struct {
	api API
	ctx context.Context

	sessionID    string
	agents       []character.Summary
	selected     int
	transcripts  map[character.ID][]line
	remaining    map[character.ID]int
	maxQuestions int

	asking  character.ID
	partial string
	inbound chan tea.Msg

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model

	status   string
	err      error
	finished bool
	outcome  string
	width    int
	height   int
}

func NewModel(ctx context.Context, api API) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Ask a question, or /accuse <name>, /end, /help"
	input.CharLimit = 500
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	return Model{
		api:         api,
		ctx:         ctx,
		transcripts: map[character.ID][]line{},
		remaining:   map[character.ID]int{},
		input:       input,
		transcript:  viewport.New(80, 16),
		spinner:     sp,
		status:      "opening case file...",
		width:       100,
		height:      30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.startGame())
}

func (m Model) startGame() tea.Cmd {
	return func() tea.Msg {
		created, err := m.api.NewGame(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		agents, err := m.api.Agents(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		greetings := make(map[character.ID]string, len(agents))
		for _, a := range agents {
			g, err := m.api.Greeting(m.ctx, a.ID)
			if err != nil {
				return errMsg{err}
			}
			greetings[a.ID] = g
		}
		return readyMsg{game: created, agents: agents, greetings: greetings}
	}
}

func waitFor(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.transcript.Width = max(20, msg.Width-4)
		m.transcript.Height = max(5, msg.Height-10)
		m.input.Width = max(10, msg.Width-6)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case readyMsg:
		m.sessionID = msg.game.SessionID
		m.maxQuestions = msg.game.MaxQuestions
		m.agents = msg.agents
		for id, n := range msg.game.RemainingQuestions {
			m.remaining[id] = n
		}
		for _, a := range msg.agents {
			m.transcripts[a.ID] = append(m.transcripts[a.ID], line{sender: game.SenderAgent, text: msg.greetings[a.ID]})
		}
		m.status = fmt.Sprintf("case %s opened. %d questions per suspect.", shortID(m.sessionID), m.maxQuestions)
		m.refresh()
		return m, nil

	case deltaMsg:
		if msg.id == m.asking {
			m.partial += msg.text
			m.refresh()
		}
		return m, waitFor(m.inbound)

	case turnDoneMsg:
		m.finishTurn(msg)
		m.refresh()
		return m, nil

	case verdictMsg:
		m.finished = true
		v := msg.verdict
		if v.IsCorrect {
			m.outcome = fmt.Sprintf("CASE SOLVED. %s is the killer.", v.ActualKiller)
		} else {
			m.outcome = fmt.Sprintf("WRONG. You accused %s; the killer was %s.", v.SuspectID, v.ActualKiller)
		}
		m.outcome += "\n" + v.Scenario.Method + ": " + v.Scenario.Details
		m.status = "press q to leave the station"
		return m, nil

	case revealMsg:
		m.finished = true
		r := msg.reveal
		m.outcome = fmt.Sprintf("Investigation closed. The killer was %s.\n%s: %s", r.Killer, r.Scenario.Method, r.Scenario.Details)
		m.status = "press q to leave the station"
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.transcript, cmd = m.transcript.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	}

	if m.finished {
		if msg.String() == "q" {
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "tab":
		if len(m.agents) > 0 {
			m.selected = (m.selected + 1) % len(m.agents)
			m.refresh()
		}
		return m, nil
	case "shift+tab":
		if len(m.agents) > 0 {
			m.selected = (m.selected + len(m.agents) - 1) % len(m.agents)
			m.refresh()
		}
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	case "enter":
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.sessionID == "" {
		return m, nil
	}
	if m.asking != "" {
		m.status = "wait for the current answer"
		return m, nil
	}
	m.input.Reset()
	m.err = nil

	cmd, arg := parseCommand(text)
	switch cmd {
	case "accuse":
		suspect, ok := m.resolveSuspect(arg)
		if !ok {
			m.status = "unknown suspect: " + arg
			return m, nil
		}
		m.status = fmt.Sprintf("accusing %s...", suspect)
		return m, m.accuse(suspect)
	case "end":
		m.status = "closing the investigation..."
		return m, m.end()
	case "help":
		m.status = "tab/shift+tab switch suspect · /accuse <name> · /end · esc quit"
		return m, nil
	case "":
		return m.ask(text)
	default:
		m.status = "unknown command /" + cmd
		return m, nil
	}
}

func (m Model) ask(question string) (tea.Model, tea.Cmd) {
	agent, ok := m.current()
	if !ok {
		return m, nil
	}
	if m.remaining[agent.ID] <= 0 {
		m.status = fmt.Sprintf("%s has no questions left", agent.Name)
		return m, nil
	}

	m.transcripts[agent.ID] = append(m.transcripts[agent.ID], line{sender: game.SenderPlayer, text: question})
	m.asking = agent.ID
	m.partial = ""
	m.status = fmt.Sprintf("%s is answering", agent.Name)

	ch := make(chan tea.Msg, 64)
	m.inbound = ch
	api, ctx, sessionID, id := m.api, m.ctx, m.sessionID, agent.ID
	go func() {
		defer close(ch)
		frame, err := api.Ask(ctx, sessionID, id, question, func(f stream.Frame) {
			if f.Event == "delta" {
				ch <- deltaMsg{id: id, text: f.Content}
			}
		})
		ch <- turnDoneMsg{id: id, frame: frame, err: err}
	}()

	m.refresh()
	return m, waitFor(ch)
}

func (m *Model) finishTurn(msg turnDoneMsg) {
	m.asking = ""
	m.partial = ""
	m.inbound = nil

	var apiErr *client.APIError
	switch {
	case errors.As(msg.err, &apiErr) && apiErr.QuotaExhausted():
		m.remaining[msg.id] = 0
		m.status = apiErr.Message
	case msg.err != nil:
		m.err = msg.err
		m.status = ""
	case msg.frame.Event == "error":
		m.transcripts[msg.id] = append(m.transcripts[msg.id], line{sender: game.SenderSystem, text: msg.frame.Error})
		m.status = "the answer was lost; the question still counts"
		if msg.frame.RemainingQuestions != nil {
			m.remaining[msg.id] = *msg.frame.RemainingQuestions
		}
	default:
		m.transcripts[msg.id] = append(m.transcripts[msg.id], line{sender: game.SenderAgent, text: msg.frame.FullText})
		if msg.frame.RemainingQuestions != nil {
			m.remaining[msg.id] = *msg.frame.RemainingQuestions
		}
		m.status = fmt.Sprintf("%d questions left for %s", m.remaining[msg.id], msg.id)
	}
}

func (m Model) accuse(suspect character.ID) tea.Cmd {
	api, ctx, sessionID := m.api, m.ctx, m.sessionID
	return func() tea.Msg {
		v, err := api.Accuse(ctx, sessionID, suspect)
		if err != nil {
			return errMsg{err}
		}
		return verdictMsg{v}
	}
}

func (m Model) end() tea.Cmd {
	api, ctx, sessionID := m.api, m.ctx, m.sessionID
	return func() tea.Msg {
		r, err := api.End(ctx, sessionID)
		if err != nil {
			return errMsg{err}
		}
		return revealMsg{r}
	}
}

func (m Model) current() (character.Summary, bool) {
	if m.selected < 0 || m.selected >= len(m.agents) {
		return character.Summary{}, false
	}
	return m.agents[m.selected], true
}

// resolveSuspect accepts an id or a display name. An empty arg means the
// suspect currently on screen.
func (m Model) resolveSuspect(arg string) (character.ID, bool) {
	if arg == "" {
		agent, ok := m.current()
		return agent.ID, ok
	}
	if id, ok := character.ParseID(arg); ok {
		return id, true
	}
	for _, a := range m.agents {
		if strings.EqualFold(a.Name, arg) {
			return a.ID, true
		}
	}
	return "", false
}

// parseCommand splits "/accuse hex" into ("accuse", "hex"). Plain text
// yields an empty command.
func parseCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m *Model) refresh() {
	m.transcript.SetContent(m.renderTranscript())
	m.transcript.GotoBottom()
}

func (m Model) renderTranscript() string {
	agent, ok := m.current()
	if !ok {
		return systemStyle.Render("waiting for the station roster...")
	}

	wrap := lipgloss.NewStyle().Width(max(20, m.transcript.Width-2))
	name := agentStyle(agent.Color).Render(agent.Name)

	var b strings.Builder
	for _, l := range m.transcripts[agent.ID] {
		switch l.sender {
		case game.SenderPlayer:
			b.WriteString(wrap.Render(playerStyle.Render("DETECTIVE") + ": " + l.text))
		case game.SenderSystem:
			b.WriteString(wrap.Render(systemStyle.Render("[" + l.text + "]")))
		default:
			b.WriteString(wrap.Render(name + ": " + l.text))
		}
		b.WriteString("\n\n")
	}
	if m.asking == agent.ID {
		b.WriteString(wrap.Render(name + ": " + m.partial + m.spinner.View()))
	}
	return b.String()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TURING STATION // interrogation log"))
	b.WriteString("\n")

	tabs := make([]string, 0, len(m.agents))
	for i, a := range m.agents {
		label := fmt.Sprintf("%s %d/%d", a.Name, m.remaining[a.ID], m.maxQuestions)
		if i == m.selected {
			tabs = append(tabs, tabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(label))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")

	if agent, ok := m.current(); ok {
		b.WriteString(helpStyle.Render(agent.System + " · " + agent.Description))
		b.WriteString("\n")
	}

	b.WriteString(panelStyle.Render(m.transcript.View()))
	b.WriteString("\n")

	if m.finished {
		b.WriteString(panelStyle.Render(m.outcome))
		b.WriteString("\n")
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	case m.sessionID == "":
		b.WriteString(m.spinner.View() + " " + statusStyle.Render(m.status))
	default:
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab switch suspect · enter ask · /accuse <name> · /end · esc quit"))
	return b.String()
}
