package game_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
)

var epoch = time.Date(2025, 3, 1, 23, 47, 0, 0, time.UTC)

func newState(killer character.ID) game.State {
	return game.NewState("case-1", killer, character.IDs, 5, epoch)
}

func TestCanAskBecomesFalseAfterMax(t *testing.T) {
	st := newState(character.Hex)

	for i := 0; i < 5; i++ {
		if !st.CanAsk(character.Luma) {
			t.Fatalf("expected question %d to be allowed", i+1)
		}
		st.RecordQuestion(character.Luma, epoch.Add(time.Duration(i)*time.Second))
	}

	if st.CanAsk(character.Luma) {
		t.Fatal("expected quota to be exhausted after 5 questions")
	}
	if got := st.Remaining(character.Luma); got != 0 {
		t.Fatalf("remaining: got %d want 0", got)
	}
	if !st.CanAsk(character.Dael) {
		t.Fatal("quota of other characters must be untouched")
	}
}

func TestAppendMessageCreatesTranscriptAndNeverMovesActivityBack(t *testing.T) {
	st := game.State{ID: "x", MaxQuestions: 5, LastActivity: epoch}

	st.AppendMessage("GHOST", game.SenderSystem, "static", epoch.Add(time.Minute))
	st.AppendMessage("GHOST", game.SenderSystem, "late clock", epoch.Add(-time.Hour))

	if got := len(st.Transcript("GHOST")); got != 2 {
		t.Fatalf("transcript length: got %d want 2", got)
	}
	if !st.LastActivity.Equal(epoch.Add(time.Minute)) {
		t.Fatalf("lastActivity moved backward: %v", st.LastActivity)
	}
}

func TestRecentWindow(t *testing.T) {
	st := newState(character.Hex)
	for i := 0; i < 14; i++ {
		st.AppendMessage(character.Aris, game.SenderPlayer, string(rune('a'+i)), epoch)
	}

	recent := st.Recent(character.Aris, 10)
	if len(recent) != 10 {
		t.Fatalf("window length: got %d want 10", len(recent))
	}
	if recent[0].Message != "e" || recent[9].Message != "n" {
		t.Fatalf("unexpected window bounds: %q..%q", recent[0].Message, recent[9].Message)
	}

	recent[0].Message = "mutated"
	if st.Recent(character.Aris, 10)[0].Message != "e" {
		t.Fatal("Recent must return a copy")
	}
}

func TestRecordAccusationCorrect(t *testing.T) {
	st := newState(character.Hex)

	verdict, err := st.RecordAccusation(character.Hex, character.Default(), epoch)
	if err != nil {
		t.Fatalf("RecordAccusation err: %v", err)
	}
	if !verdict.IsCorrect || verdict.ActualKiller != character.Hex {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
	if st.Phase != game.PhaseVerdict {
		t.Fatalf("phase: got %s want verdict", st.Phase)
	}
}

func TestRecordAccusationWrongStillRevealsKillerScenario(t *testing.T) {
	st := newState(character.Hex)

	verdict, err := st.RecordAccusation(character.Luma, character.Default(), epoch)
	if err != nil {
		t.Fatalf("RecordAccusation err: %v", err)
	}
	if verdict.IsCorrect {
		t.Fatal("expected incorrect verdict")
	}
	if verdict.ActualKiller != character.Hex {
		t.Fatalf("actual killer: got %s", verdict.ActualKiller)
	}
	if verdict.Scenario.Method != "Security System Execution" {
		t.Fatalf("scenario should describe the real killer, got %q", verdict.Scenario.Method)
	}
}

func TestRecordAccusationUnknownSuspectIsIncorrect(t *testing.T) {
	st := newState(character.Dael)

	verdict, err := st.RecordAccusation("CAPTAIN", character.Default(), epoch)
	if err != nil {
		t.Fatalf("unknown suspect must not be an error: %v", err)
	}
	if verdict.IsCorrect || verdict.ActualKiller != character.Dael {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
}

func TestPhaseTransitionsOnlyMoveForward(t *testing.T) {
	st := newState(character.Orbita)

	if err := st.BeginAccusation(epoch); err != nil {
		t.Fatalf("BeginAccusation err: %v", err)
	}
	if err := st.BeginAccusation(epoch); !errors.Is(err, game.ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
	if _, err := st.RecordAccusation(character.Orbita, character.Default(), epoch); err != nil {
		t.Fatalf("accusation from accusation phase err: %v", err)
	}
	if _, err := st.RecordAccusation(character.Orbita, character.Default(), epoch); !errors.Is(err, game.ErrInvalidPhase) {
		t.Fatalf("second accusation: expected ErrInvalidPhase, got %v", err)
	}

	st.End(epoch)
	if st.Phase != game.PhaseEnded || st.IsActive {
		t.Fatalf("unexpected state after end: phase=%s active=%t", st.Phase, st.IsActive)
	}
}

func TestSummaryNeverCarriesKiller(t *testing.T) {
	st := newState(character.Aris)
	payload, err := json.Marshal(st.Summary())
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	if _, ok := fields["killer"]; ok {
		t.Fatalf("summary leaked killer: %s", payload)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	st := newState(character.Luma)
	st.AppendMessage(character.Hex, game.SenderPlayer, "Where were you?", epoch.Add(time.Second))
	st.RecordQuestion(character.Hex, epoch.Add(time.Second))
	st.AppendMessage(character.Hex, game.SenderAgent, "Maintenance window.", epoch.Add(2*time.Second))

	original := game.New(st)
	payload, err := json.Marshal(original.Snapshot())
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}

	var decoded game.State
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal err: %v", err)
	}
	restored, err := game.Restore(decoded)
	if err != nil {
		t.Fatalf("Restore err: %v", err)
	}

	if !reflect.DeepEqual(original.Snapshot(), restored.Snapshot()) {
		t.Fatalf("restored state differs:\n got  %+v\n want %+v", restored.Snapshot(), original.Snapshot())
	}

	// Both sessions must keep behaving identically.
	for _, s := range []*game.Session{original, restored} {
		err := s.Do(func(st *game.State) error {
			if st.Remaining(character.Hex) != 4 || !st.IsKiller(character.Luma) {
				t.Fatalf("unexpected behaviour for %s", st.ID)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Do err: %v", err)
		}
	}
}

func TestRestoreRejectsBrokenSnapshots(t *testing.T) {
	cases := map[string]func(*game.State){
		"empty id":       func(s *game.State) { s.ID = "" },
		"unknown killer": func(s *game.State) { s.Killer = "CAPTAIN" },
		"bad phase":      func(s *game.State) { s.Phase = "limbo" },
		"count overflow": func(s *game.State) { s.QuestionCounts[character.Hex] = 6 },
		"ended but live": func(s *game.State) { s.Phase = game.PhaseEnded },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			st := newState(character.Hex)
			mutate(&st)
			if _, err := game.Restore(st); !errors.Is(err, game.ErrInvalidState) {
				t.Fatalf("expected ErrInvalidState, got %v", err)
			}
		})
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	session := game.New(newState(character.Hex))
	snap := session.Snapshot()
	snap.QuestionCounts[character.Hex] = 99
	snap.ChatHistory[character.Hex] = append(snap.ChatHistory[character.Hex], game.Entry{Message: "forged"})

	fresh := session.Snapshot()
	if fresh.QuestionCounts[character.Hex] != 0 || len(fresh.ChatHistory[character.Hex]) != 0 {
		t.Fatal("snapshot shares memory with the session")
	}
}
