package client

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/turing-station/backend/internal/handler"
	"github.com/turing-station/backend/internal/handler/stream"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
	"github.com/turing-station/backend/internal/service/ai"
	gamesvc "github.com/turing-station/backend/internal/service/game"
	"github.com/turing-station/backend/internal/service/interrogation"
	"github.com/turing-station/backend/internal/store"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type cannedProvider struct{}

func (cannedProvider) Stream(context.Context, ai.Prompt) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{
		schema.AssistantMessage("Ledger ", nil),
		schema.AssistantMessage("intact.", nil),
	}), nil
}

func newServer(t *testing.T) *Client {
	t.Helper()
	cast := character.Default()
	reg := gamesvc.NewRegistry(cast, gamesvc.Config{MaxQuestions: 1, SessionTimeout: time.Hour},
		gamesvc.WithPicker(func([]character.ID) character.ID { return character.Dael }))
	coord := interrogation.NewCoordinator(reg, cast, cannedProvider{})

	srv := httptest.NewServer(handler.NewRouter(handler.Dependencies{
		Cast:        cast,
		Registry:    reg,
		Coordinator: coord,
		Ledger:      store.Nop{},
	}))
	t.Cleanup(func() {
		srv.Close()
		coord.Wait()
	})
	return New(srv.URL+"/", nil)
}

func TestGameRoundTrip(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	created, err := c.NewGame(ctx)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if created.SessionID == "" || created.MaxQuestions != 1 || created.Phase != game.PhaseInvestigation {
		t.Fatalf("unexpected game: %+v", created)
	}

	agents, err := c.Agents(ctx)
	if err != nil || len(agents) != len(character.IDs) {
		t.Fatalf("Agents: %v (%d)", err, len(agents))
	}

	greeting, err := c.Greeting(ctx, character.Dael)
	if err != nil || greeting == "" {
		t.Fatalf("Greeting: %q %v", greeting, err)
	}

	var deltas []string
	final, err := c.Ask(ctx, created.SessionID, character.Dael, "Who had access?", func(f stream.Frame) {
		if f.Event == "delta" {
			deltas = append(deltas, f.Content)
		}
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if final.Event != "complete" || final.FullText != "Ledger intact." || strings.Join(deltas, "") != final.FullText {
		t.Fatalf("unexpected reply: %+v deltas=%v", final, deltas)
	}

	_, err = c.Ask(ctx, created.SessionID, character.Dael, "Again?", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.QuotaExhausted() {
		t.Fatalf("expected quota error, got %v", err)
	}

	verdict, err := c.Accuse(ctx, created.SessionID, character.Dael)
	if err != nil || !verdict.IsCorrect {
		t.Fatalf("Accuse: %+v %v", verdict, err)
	}

	reveal, err := c.End(ctx, created.SessionID)
	if err != nil || reveal.Killer != character.Dael || reveal.Session.IsActive {
		t.Fatalf("End: %+v %v", reveal, err)
	}
}

func TestSessionNotFound(t *testing.T) {
	c := newServer(t)
	_, err := c.Session(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 || apiErr.Message != "Game session not found" {
		t.Fatalf("expected 404 api error, got %v", err)
	}
}

func TestReadFramesTruncated(t *testing.T) {
	body := "data: {\"event\":\"start\"}\n\ndata: {\"event\":\"delta\",\"content\":\"x\"}\n\n"
	if _, err := readFrames(strings.NewReader(body), nil); !errors.Is(err, ErrStreamTruncated) {
		t.Fatalf("expected truncation error, got %v", err)
	}
}
