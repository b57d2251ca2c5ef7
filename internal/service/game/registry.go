package game

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
	ErrSessionNotFound   = errors.New("session not found")
)

const (
	DefaultMaxQuestions   = 5
	DefaultSessionTimeout = 60 * time.Minute
	DefaultSweepInterval  = 10 * time.Minute

	archiveTimeout = 5 * time.Second
)

// Config tunes quotas and expiry.
type Config struct {
	MaxQuestions   int
	SessionTimeout time.Duration
	SweepInterval  time.Duration
}

// Archive receives the outcome of every closed case. Failures are logged only.
type Archive interface {
	Record(ctx context.Context, outcome game.Outcome) error
}

// KillerPicker chooses the killer for a new session.
type KillerPicker func(cast []character.ID) character.ID

// UniformPicker draws uniformly over the cast.
func UniformPicker(cast []character.ID) character.ID {
	return cast[rand.IntN(len(cast))]
}

type Option func(*Registry)

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithPicker(pick KillerPicker) Option {
	return func(r *Registry) { r.pick = pick }
}

func WithArchive(a Archive) Option {
	return func(r *Registry) { r.archive = a }
}

// WithKillerLogging writes the chosen killer to the server log. Development only.
func WithKillerLogging(enabled bool) Option {
	return func(r *Registry) { r.logKiller = enabled }
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	TotalSessions  int           `json:"totalSessions"`
	ActiveSessions int           `json:"activeSessions"`
	SessionTimeout time.Duration `json:"-"`
}

// Registry owns every live session. Lock order is registry then session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session

	cast      character.Store
	cfg       Config
	now       func() time.Time
	pick      KillerPicker
	archive   Archive
	logKiller bool

	workerMu sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRegistry builds an empty registry. A zero SessionTimeout expires sessions
// on the next sweep and a zero SweepInterval disables the background worker.
func NewRegistry(cast character.Store, cfg Config, opts ...Option) *Registry {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	if cfg.SessionTimeout < 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}
	if cfg.SweepInterval < 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	r := &Registry{
		sessions: make(map[string]*game.Session),
		cast:     cast,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		pick:     UniformPicker,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Config() Config { return r.cfg }

func (r *Registry) Cast() character.Store { return r.cast }

// Create provisions a new investigation with a randomly chosen killer.
func (r *Registry) Create(_ context.Context) *game.Session {
	ids := r.cast.IDs()
	killer := r.pick(ids)
	state := game.NewState(uuid.NewString(), killer, ids, r.cfg.MaxQuestions, r.now())
	session := game.New(state)

	r.mu.Lock()
	r.sessions[session.ID()] = session
	r.mu.Unlock()

	if r.logKiller {
		log.Printf("[registry] session created id=%s killer=%s", session.ID(), killer)
	} else {
		log.Printf("[registry] session created id=%s", session.ID())
	}
	return session
}

// Get resolves a session and refreshes its activity. The touch happens under
// the registry read lock so a concurrent sweep cannot evict it in between.
func (r *Registry) Get(_ context.Context, id string) (*game.Session, error) {
	if id == "" {
		return nil, ErrSessionIDRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.Touch(r.now())
	return session, nil
}

// BeginAccusation closes questioning for the session.
func (r *Registry) BeginAccusation(ctx context.Context, id string) (game.Summary, error) {
	session, err := r.Get(ctx, id)
	if err != nil {
		return game.Summary{}, err
	}

	var summary game.Summary
	err = session.Do(func(st *game.State) error {
		if err := st.BeginAccusation(r.now()); err != nil {
			return err
		}
		summary = st.Summary()
		return nil
	})
	return summary, err
}

// Accuse scores the player's guess and moves the session to verdict.
func (r *Registry) Accuse(ctx context.Context, id string, suspect character.ID) (game.Verdict, error) {
	session, err := r.Get(ctx, id)
	if err != nil {
		return game.Verdict{}, err
	}

	var (
		verdict game.Verdict
		outcome game.Outcome
	)
	err = session.Do(func(st *game.State) error {
		now := r.now()
		v, err := st.RecordAccusation(suspect, r.cast, now)
		if err != nil {
			return err
		}
		verdict = v
		outcome = st.Outcome(now)
		return nil
	})
	if err != nil {
		return game.Verdict{}, err
	}

	log.Printf("[registry] accusation session=%s suspect=%s correct=%t", id, suspect, verdict.IsCorrect)
	r.record(ctx, outcome)
	return verdict, nil
}

// End deactivates the session and reveals the killer.
func (r *Registry) End(ctx context.Context, id string) (game.Reveal, error) {
	session, err := r.Get(ctx, id)
	if err != nil {
		return game.Reveal{}, err
	}

	var (
		reveal  game.Reveal
		outcome game.Outcome
	)
	_ = session.Do(func(st *game.State) error {
		now := r.now()
		st.End(now)
		scenario, _ := r.cast.Scenario(st.Killer)
		reveal = game.Reveal{Killer: st.Killer, Scenario: scenario, Session: st.Summary()}
		outcome = st.Outcome(now)
		return nil
	})

	log.Printf("[registry] session ended id=%s", id)
	r.record(ctx, outcome)
	return reveal, nil
}

// Sweep evicts every session idle for at least the configured timeout and
// returns how many were removed. Phase does not matter.
func (r *Registry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, session := range r.sessions {
		if now.Sub(session.LastActivity()) >= r.cfg.SessionTimeout {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[registry] swept %d expired sessions, %d remain", removed, len(r.sessions))
	}
	return removed
}

// Start launches the periodic sweep. Calling Start twice is a no-op.
func (r *Registry) Start(ctx context.Context) {
	if r.cfg.SweepInterval <= 0 {
		log.Printf("[registry] sweep disabled")
		return
	}

	r.workerMu.Lock()
	defer r.workerMu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(r.cfg.SweepInterval)
		defer ticker.Stop()
		log.Printf("[registry] sweep worker started interval=%s timeout=%s", r.cfg.SweepInterval, r.cfg.SessionTimeout)

		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-ctx.Done():
				log.Printf("[registry] sweep worker stopping: %v", ctx.Err())
				return
			}
		}
	}(r.done)
}

// Stop halts the sweep worker and waits for it to exit.
func (r *Registry) Stop() {
	r.workerMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.workerMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	sessions := make([]*game.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	stats := Stats{TotalSessions: len(sessions), SessionTimeout: r.cfg.SessionTimeout}
	for _, s := range sessions {
		if s.Summary().IsActive {
			stats.ActiveSessions++
		}
	}
	return stats
}

// Len reports the number of sessions currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) record(ctx context.Context, outcome game.Outcome) {
	if r.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := r.archive.Record(ctx, outcome); err != nil {
		log.Printf("[registry] archive outcome session=%s failed: %v", outcome.SessionID, err)
	}
}
