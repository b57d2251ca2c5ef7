package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
)

// HistoryWindow bounds how many transcript entries are replayed to the model.
const HistoryWindow = 10

var ErrUnknownCharacter = errors.New("unknown character")

// Prompt is the role-tagged request handed to the completion provider.
type Prompt struct {
	System  string
	History []*schema.Message
}

// Messages flattens the prompt into the provider message sequence.
func (p Prompt) Messages() []*schema.Message {
	out := make([]*schema.Message, 0, len(p.History)+1)
	out = append(out, schema.SystemMessage(p.System))
	return append(out, p.History...)
}

// roleTemplate is one of the two role blocks appended to the station rules.
type roleTemplate struct {
	AlibiLabel     string
	SuspicionLabel string
	Verdict        string

	// Heading, when set, sits directly above the directives.
	Heading    string
	Directives []string
}

var stationRules = []string{
	"Stay in character at all times",
	"Only answer what the human asks",
	"Do not volunteer information unless it fits your personality",
	"Be consistent with your backstory and alibi",
	"React appropriately to accusations or pressure",
	"Keep responses under 200 words",
	"Be conversational but maintain your unique personality",
}

var innocentTemplate = roleTemplate{
	AlibiLabel:     "YOUR ALIBI",
	SuspicionLabel: "YOUR SUSPICIONS",
	Verdict:        "YOU ARE INNOCENT. You did not kill Dr. Rao.",
	Directives: []string{
		"Answer questions honestly from your perspective",
		"Share your alibi when asked",
		"You may express suspicions about other AIs if it comes up naturally",
		"Be helpful but don't overshare unless it fits your personality",
		"You genuinely want to help find the real killer",
	},
}

var guiltyTemplate = roleTemplate{
	AlibiLabel:     "COVER STORY",
	SuspicionLabel: "MISDIRECTION",
	Verdict: "YOU ARE THE KILLER. You killed Dr. Rao.\n\n" +
		"HOW YOU DID IT: You exploited your system access to create a fatal \"accident\" - perhaps a life support " +
		"malfunction, security system failure, or other technical means that fits your domain.",
	Heading: "STRATEGY:",
	Directives: []string{
		"NEVER directly confess unless absolutely cornered with irrefutable evidence",
		"Present your alibi as truth when asked",
		"Deflect suspicion to other AIs when possible",
		"Answer questions but avoid volunteering incriminating information",
		"Show subtle signs of deception only if pressed hard",
		"Maintain your personality - don't become obviously guilty",
		"If directly accused, deny it but show appropriate stress responses for your personality",
	},
}

// Composer turns a character, its guilt and a transcript window into a Prompt.
type Composer struct {
	cast character.Store
}

func NewComposer(cast character.Store) *Composer {
	return &Composer{cast: cast}
}

// Compose is pure. window is expected to already end with the player's new
// question; it is trimmed to HistoryWindow entries and system notes are dropped.
func (c *Composer) Compose(id character.ID, isKiller bool, window []game.Entry) (Prompt, error) {
	ch, ok := c.cast.FindByID(id)
	if !ok {
		return Prompt{}, fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}

	tpl := innocentTemplate
	if isKiller {
		tpl = guiltyTemplate
	}

	return Prompt{
		System:  buildSystemPrompt(ch, tpl),
		History: buildHistoryMessages(window),
	}, nil
}

func buildSystemPrompt(ch character.Character, tpl roleTemplate) string {
	return fmt.Sprintf(`You are an AI agent aboard Turing Station, a research facility orbiting a desolate planet.
Dr. Rao, a human researcher, has been found dead. You are being interrogated by the sole remaining human crew member.

CRITICAL RULES:
- %s

You are %s, the %s AI.

PERSONALITY: %s
BACKGROUND: %s
%s: %s
%s: %s

%s

%s`,
		strings.Join(stationRules, "\n- "),
		ch.Name, ch.System,
		ch.Personality,
		ch.Backstory,
		tpl.AlibiLabel, ch.Alibi,
		tpl.SuspicionLabel, ch.Suspicions,
		tpl.Verdict,
		directiveBlock(tpl),
	)
}

func directiveBlock(tpl roleTemplate) string {
	list := "- " + strings.Join(tpl.Directives, "\n- ")
	if tpl.Heading == "" {
		return list
	}
	return tpl.Heading + "\n" + list
}

func buildHistoryMessages(entries []game.Entry) []*schema.Message {
	if len(entries) > HistoryWindow {
		entries = entries[len(entries)-HistoryWindow:]
	}

	history := make([]*schema.Message, 0, len(entries))
	for _, e := range entries {
		switch e.Sender {
		case game.SenderPlayer:
			history = append(history, schema.UserMessage(e.Message))
		case game.SenderAgent:
			history = append(history, schema.AssistantMessage(e.Message, nil))
		}
	}
	return history
}
