package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/turing-station/backend/internal/config"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
)

func sampleOutcome(id string, accused character.ID, phase game.Phase) game.Outcome {
	created := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	return game.Outcome{
		SessionID:      id,
		Killer:         character.Hex,
		Accused:        accused,
		Solved:         accused == character.Hex,
		Phase:          phase,
		TotalQuestions: 3,
		CreatedAt:      created,
		ClosedAt:       created.Add(20 * time.Minute),
		Transcript: map[character.ID][]game.Entry{
			character.Hex: {{Sender: game.SenderPlayer, Message: "Where were you?", Timestamp: created}},
		},
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLite err: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRecordAndSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, sampleOutcome("a", character.Hex, game.PhaseVerdict)); err != nil {
		t.Fatalf("Record err: %v", err)
	}
	if err := s.Record(ctx, sampleOutcome("b", character.Luma, game.PhaseVerdict)); err != nil {
		t.Fatalf("Record err: %v", err)
	}

	summary, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary err: %v", err)
	}
	if summary.Cases != 2 || summary.Solved != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSQLiteEndAfterVerdictKeepsAccusation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, sampleOutcome("case", character.Hex, game.PhaseVerdict)); err != nil {
		t.Fatalf("Record verdict err: %v", err)
	}
	ended := sampleOutcome("case", "", game.PhaseEnded)
	ended.Solved = false
	if err := s.Record(ctx, ended); err != nil {
		t.Fatalf("Record end err: %v", err)
	}

	var (
		accused    string
		solved     int
		phase      string
		transcript string
	)
	row := s.db.QueryRowContext(ctx, `SELECT accused, solved, phase, transcript_json FROM case_outcomes WHERE session_id = ?`, "case")
	if err := row.Scan(&accused, &solved, &phase, &transcript); err != nil {
		t.Fatalf("scan err: %v", err)
	}
	if accused != string(character.Hex) || solved != 1 || phase != string(game.PhaseEnded) {
		t.Fatalf("unexpected row: accused=%s solved=%d phase=%s", accused, solved, phase)
	}

	var decoded map[character.ID][]game.Entry
	if err := json.Unmarshal([]byte(transcript), &decoded); err != nil {
		t.Fatalf("transcript json err: %v", err)
	}
	if len(decoded[character.Hex]) != 1 {
		t.Fatalf("unexpected transcript: %+v", decoded)
	}

	summary, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary err: %v", err)
	}
	if summary.Cases != 1 || summary.Solved != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ledger, err := Open(config.LedgerConfig{Driver: config.LedgerNone})
	if err != nil {
		t.Fatalf("Open none err: %v", err)
	}
	if _, ok := ledger.(Nop); !ok {
		t.Fatalf("expected Nop ledger, got %T", ledger)
	}

	ledger, err = Open(config.LedgerConfig{Driver: config.LedgerSQLite, DBPath: filepath.Join(t.TempDir(), "l.db")})
	if err != nil {
		t.Fatalf("Open sqlite err: %v", err)
	}
	defer ledger.Close()
	if _, ok := ledger.(*SQLiteStore); !ok {
		t.Fatalf("expected SQLite ledger, got %T", ledger)
	}

	if _, err := Open(config.LedgerConfig{Driver: "postgres"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOutcomeRowShape(t *testing.T) {
	row, err := newOutcomeRow(sampleOutcome("s", "", game.PhaseEnded))
	if err != nil {
		t.Fatalf("newOutcomeRow err: %v", err)
	}
	if row.Accused != nil {
		t.Fatalf("empty accusation must map to null, got %q", *row.Accused)
	}
	if row.ClosedAt != "2025-03-01T23:20:00.000Z" {
		t.Fatalf("closed_at: got %s", row.ClosedAt)
	}
}
