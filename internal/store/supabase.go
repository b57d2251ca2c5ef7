package store

import (
	"context"
	"encoding/json"
	"fmt"

	supa "github.com/supabase-community/supabase-go"
	"github.com/turing-station/backend/internal/model/game"
)

// outcomeRow matches the case_outcomes table in Supabase.
type outcomeRow struct {
	SessionID      string          `json:"session_id"`
	Killer         string          `json:"killer"`
	Accused        *string         `json:"accused"`
	Solved         bool            `json:"solved"`
	Phase          string          `json:"phase"`
	TotalQuestions int             `json:"total_questions"`
	Transcript     json.RawMessage `json:"transcript"`
	CreatedAt      string          `json:"created_at"`
	ClosedAt       string          `json:"closed_at"`
}

func newOutcomeRow(o game.Outcome) (outcomeRow, error) {
	transcript, err := json.Marshal(o.Transcript)
	if err != nil {
		return outcomeRow{}, fmt.Errorf("encode transcript: %w", err)
	}

	row := outcomeRow{
		SessionID:      o.SessionID,
		Killer:         string(o.Killer),
		Solved:         o.Solved,
		Phase:          string(o.Phase),
		TotalQuestions: o.TotalQuestions,
		Transcript:     transcript,
		CreatedAt:      o.CreatedAt.UTC().Format(timeLayout),
		ClosedAt:       o.ClosedAt.UTC().Format(timeLayout),
	}
	if o.Accused != "" {
		accused := string(o.Accused)
		row.Accused = &accused
	}
	return row, nil
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// SupabaseStore implements Ledger against a Supabase (PostgREST) table.
type SupabaseStore struct {
	client *supa.Client
	table  string
}

func NewSupabase(url, key, table string) (*SupabaseStore, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to supabase: %w", err)
	}
	return &SupabaseStore{client: client, table: table}, nil
}

// Record upserts on session_id. The PostgREST client does not take a context.
func (s *SupabaseStore) Record(_ context.Context, outcome game.Outcome) error {
	row, err := newOutcomeRow(outcome)
	if err != nil {
		return err
	}

	var inserted []outcomeRow
	if _, err := s.client.From(s.table).Insert(row, true, "session_id", "representation", "").ExecuteTo(&inserted); err != nil {
		return fmt.Errorf("upsert case outcome: %w", err)
	}
	return nil
}

func (s *SupabaseStore) Summary(_ context.Context) (Summary, error) {
	var rows []struct {
		Solved bool `json:"solved"`
	}
	if _, err := s.client.From(s.table).Select("solved", "exact", false).ExecuteTo(&rows); err != nil {
		return Summary{}, fmt.Errorf("select case outcomes: %w", err)
	}

	summary := Summary{Cases: len(rows)}
	for _, r := range rows {
		if r.Solved {
			summary.Solved++
		}
	}
	return summary, nil
}

func (s *SupabaseStore) Close() error { return nil }
