package ai_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
	"github.com/turing-station/backend/internal/service/ai"
)

func TestComposeInnocent(t *testing.T) {
	composer := ai.NewComposer(character.Default())

	prompt, err := composer.Compose(character.Aris, false, []game.Entry{
		{Sender: game.SenderPlayer, Message: "How is the air?"},
	})
	if err != nil {
		t.Fatalf("Compose err: %v", err)
	}

	for _, want := range []string{
		"You are ARIS, the Life Support AI.",
		"YOUR ALIBI: Was monitoring CO2 scrubbers in Section B during the event",
		"YOU ARE INNOCENT",
		"Keep responses under 200 words",
		"You did not kill Dr. Rao.\n\n- Answer questions honestly",
	} {
		if !strings.Contains(prompt.System, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, prompt.System)
		}
	}
	if strings.Contains(prompt.System, "KILLER") {
		t.Fatal("innocent prompt must not mention guilt")
	}
}

func TestComposeGuilty(t *testing.T) {
	composer := ai.NewComposer(character.Default())

	prompt, err := composer.Compose(character.Hex, true, nil)
	if err != nil {
		t.Fatalf("Compose err: %v", err)
	}
	for _, want := range []string{
		"YOU ARE THE KILLER",
		"COVER STORY: Claims surveillance was offline for routine maintenance",
		"MISDIRECTION: Believes DAEL had conflicts with Dr. Rao over research ethics",
		"NEVER directly confess",
		"Deflect suspicion to other AIs",
		"fits your domain.\n\nSTRATEGY:\n- NEVER directly confess",
	} {
		if !strings.Contains(prompt.System, want) {
			t.Fatalf("guilty prompt missing %q", want)
		}
	}
	if strings.Contains(prompt.System, "STRATEGY:\n\n") {
		t.Fatal("STRATEGY heading must sit directly above its directives")
	}
}

func TestComposeWindowsHistory(t *testing.T) {
	composer := ai.NewComposer(character.Default())

	var entries []game.Entry
	for i := 0; i < 12; i++ {
		sender := game.SenderPlayer
		if i%2 == 1 {
			sender = game.SenderAgent
		}
		entries = append(entries, game.Entry{Sender: sender, Message: fmt.Sprintf("m%d", i), Timestamp: time.Unix(int64(i), 0)})
	}
	entries = append(entries, game.Entry{Sender: game.SenderSystem, Message: "note"})

	prompt, err := composer.Compose(character.Luma, false, entries)
	if err != nil {
		t.Fatalf("Compose err: %v", err)
	}

	// The last 10 entries are m3..m11 plus the system note, which is dropped.
	if len(prompt.History) != 9 {
		t.Fatalf("history: got %d want 9", len(prompt.History))
	}
	if prompt.History[0].Content != "m3" || prompt.History[0].Role != schema.Assistant {
		t.Fatalf("unexpected first message: %+v", prompt.History[0])
	}
	if prompt.History[8].Content != "m11" {
		t.Fatalf("unexpected last message: %+v", prompt.History[8])
	}

	msgs := prompt.Messages()
	if msgs[0].Role != schema.System || len(msgs) != 10 {
		t.Fatalf("unexpected flattened prompt: %d messages", len(msgs))
	}
}

func TestComposeUnknownCharacter(t *testing.T) {
	composer := ai.NewComposer(character.Default())
	if _, err := composer.Compose("CAPTAIN", false, nil); !errors.Is(err, ai.ErrUnknownCharacter) {
		t.Fatalf("expected ErrUnknownCharacter, got %v", err)
	}
}
