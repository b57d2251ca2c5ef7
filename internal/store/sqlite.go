package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/turing-station/backend/internal/model/game"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Ledger on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS case_outcomes (
		session_id TEXT PRIMARY KEY,
		killer TEXT NOT NULL,
		accused TEXT,
		solved INTEGER NOT NULL DEFAULT 0,
		phase TEXT NOT NULL,
		total_questions INTEGER NOT NULL,
		transcript_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		closed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_case_outcomes_closed ON case_outcomes(closed_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record upserts the outcome; an accusation followed by end keeps one row.
func (s *SQLiteStore) Record(ctx context.Context, outcome game.Outcome) error {
	transcript, err := json.Marshal(outcome.Transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}

	query := `
	INSERT INTO case_outcomes (session_id, killer, accused, solved, phase, total_questions, transcript_json, created_at, closed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO UPDATE SET
		accused = COALESCE(excluded.accused, case_outcomes.accused),
		solved = MAX(excluded.solved, case_outcomes.solved),
		phase = excluded.phase,
		total_questions = excluded.total_questions,
		transcript_json = excluded.transcript_json,
		closed_at = excluded.closed_at`

	var accused any
	if outcome.Accused != "" {
		accused = string(outcome.Accused)
	}

	_, err = s.db.ExecContext(ctx, query,
		outcome.SessionID, string(outcome.Killer), accused, boolToInt(outcome.Solved),
		string(outcome.Phase), outcome.TotalQuestions, string(transcript),
		outcome.CreatedAt.Unix(), outcome.ClosedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert case outcome: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Summary(ctx context.Context) (Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(solved), 0) FROM case_outcomes`)

	var summary Summary
	if err := row.Scan(&summary.Cases, &summary.Solved); err != nil {
		return Summary{}, fmt.Errorf("scan ledger summary: %w", err)
	}
	return summary, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
