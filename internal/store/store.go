package store

import (
	"context"
	"fmt"

	"github.com/turing-station/backend/internal/config"
	"github.com/turing-station/backend/internal/model/game"
)

// Ledger archives closed cases. It is never used to reload live sessions.
type Ledger interface {
	Record(ctx context.Context, outcome game.Outcome) error
	Summary(ctx context.Context) (Summary, error)
	Close() error
}

// Summary aggregates the archive for the stats endpoint.
type Summary struct {
	Cases  int `json:"cases"`
	Solved int `json:"solved"`
}

// Open builds the ledger selected by cfg.Driver.
func Open(cfg config.LedgerConfig) (Ledger, error) {
	switch cfg.Driver {
	case config.LedgerSQLite:
		return NewSQLite(cfg.DBPath)
	case config.LedgerSupabase:
		return NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Table)
	case config.LedgerNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}
}

// Nop discards every outcome.
type Nop struct{}

func (Nop) Record(context.Context, game.Outcome) error { return nil }

func (Nop) Summary(context.Context) (Summary, error) { return Summary{}, nil }

func (Nop) Close() error { return nil }
