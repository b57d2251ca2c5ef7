package interrogation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
	"github.com/turing-station/backend/internal/service/ai"
)

const defaultProviderTimeout = 60 * time.Second

// Sessions resolves a session handle for one turn. Handles are not cached.
type Sessions interface {
	Get(ctx context.Context, id string) (*game.Session, error)
}

// Provider turns a composed prompt into a stream of reply fragments.
type Provider interface {
	Stream(ctx context.Context, p ai.Prompt) (*schema.StreamReader[*schema.Message], error)
}

type Option func(*Coordinator)

// WithProviderTimeout bounds a single provider call. The call ignores the
// caller's cancellation and only stops at this deadline.
func WithProviderTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// Coordinator runs question/answer turns against the completion provider.
type Coordinator struct {
	sessions Sessions
	cast     character.Store
	composer *ai.Composer
	provider Provider
	timeout  time.Duration
	now      func() time.Time

	inflight sync.WaitGroup
}

func NewCoordinator(sessions Sessions, cast character.Store, provider Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions: sessions,
		cast:     cast,
		composer: ai.NewComposer(cast),
		provider: provider,
		timeout:  defaultProviderTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Converse starts one turn. Not-found, validation, phase and quota failures
// are returned synchronously and leave the session untouched. Otherwise the
// player's message is recorded and the question charged before the provider
// is called; the caller must drain Turn.Events or call Turn.Abandon.
func (c *Coordinator) Converse(ctx context.Context, sessionID string, characterID character.ID, message string) (*Turn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrMessageRequired
	}

	session, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if _, ok := c.cast.FindByID(characterID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrCharacterNotFound, characterID)
	}

	release, err := session.AcquireTurn(ctx, characterID)
	if err != nil {
		return nil, err
	}

	var (
		prompt    ai.Prompt
		count     int
		remaining int
	)
	err = session.Do(func(st *game.State) error {
		if st.Phase != game.PhaseInvestigation || !st.IsActive {
			return fmt.Errorf("%w: questions are closed during %s", game.ErrInvalidPhase, st.Phase)
		}
		if !st.CanAsk(characterID) {
			return &QuotaError{CharacterID: characterID, Count: st.QuestionCounts[characterID], Max: st.MaxQuestions}
		}

		now := c.now()
		question := game.Entry{Sender: game.SenderPlayer, Message: message, Timestamp: now}
		window := append(st.Recent(characterID, ai.HistoryWindow-1), question)
		p, err := c.composer.Compose(characterID, st.IsKiller(characterID), window)
		if err != nil {
			return err
		}

		st.AppendMessage(characterID, question.Sender, question.Message, question.Timestamp)
		st.RecordQuestion(characterID, now)

		prompt = p
		count = st.QuestionCounts[characterID]
		remaining = st.Remaining(characterID)
		return nil
	})
	if err != nil {
		release()
		return nil, err
	}

	log.Printf("[interrogation] session=%s character=%s question=%d remaining=%d", sessionID, characterID, count, remaining)

	turn := newTurn(sessionID, characterID, count, remaining)
	c.inflight.Add(1)
	go c.run(context.WithoutCancel(ctx), turn, session, prompt, release)
	return turn, nil
}

// Wait blocks until every in-flight provider call has finished.
func (c *Coordinator) Wait() {
	c.inflight.Wait()
}

func (c *Coordinator) run(ctx context.Context, turn *Turn, session *game.Session, prompt ai.Prompt, release func()) {
	defer c.inflight.Done()
	defer close(turn.done)
	defer release()
	defer close(turn.events)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	fullText, err := c.drain(ctx, turn, prompt)
	if err != nil {
		log.Printf("[interrogation] provider failed session=%s character=%s: %v", turn.SessionID, turn.CharacterID, err)
		turn.send(Event{Kind: EventError, Err: &ProviderError{Err: err}})
		return
	}

	var completion Completion
	_ = session.Do(func(st *game.State) error {
		st.AppendMessage(turn.CharacterID, game.SenderAgent, fullText, c.now())
		completion = Completion{
			FullText:      fullText,
			QuestionCount: st.QuestionCounts[turn.CharacterID],
			Remaining:     st.Remaining(turn.CharacterID),
			CanAsk:        st.CanAsk(turn.CharacterID) && st.Phase == game.PhaseInvestigation,
		}
		return nil
	})

	log.Printf("[interrogation] reply recorded session=%s character=%s length=%d", turn.SessionID, turn.CharacterID, len(fullText))
	turn.send(Event{Kind: EventComplete, Completion: &completion})
}

// drain relays every fragment while the consumer listens and returns the
// concatenated reply once the stream ends.
func (c *Coordinator) drain(ctx context.Context, turn *Turn, prompt ai.Prompt) (string, error) {
	stream, err := c.provider.Stream(ctx, prompt)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var chunks []*schema.Message
	relaying := true
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
		if relaying && chunk.Content != "" {
			relaying = turn.send(Event{Kind: EventDelta, Text: chunk.Content})
		}
	}

	if len(chunks) == 0 {
		return "", nil
	}
	full, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", fmt.Errorf("malformed stream: %w", err)
	}
	return full.Content, nil
}
