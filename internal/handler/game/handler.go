package game

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turing-station/backend/internal/handler/apierr"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
	"github.com/turing-station/backend/internal/service/ai"
	gamesvc "github.com/turing-station/backend/internal/service/game"
	"github.com/turing-station/backend/internal/store"
	"github.com/turing-station/backend/pkg/utils"
)

const pingTimeout = 15 * time.Second

// Pinger checks provider connectivity.
type Pinger interface {
	Ping(ctx context.Context) (ai.PingResult, error)
}

// Handler serves session lifecycle routes.
type Handler struct {
	registry    *gamesvc.Registry
	ledger      store.Ledger
	pinger      Pinger
	development bool
}

func New(registry *gamesvc.Registry, ledger store.Ledger, pinger Pinger, development bool) *Handler {
	if ledger == nil {
		ledger = store.Nop{}
	}
	return &Handler{registry: registry, ledger: ledger, pinger: pinger, development: development}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/game", func(r chi.Router) {
		r.Post("/new", h.handleCreate)
		r.Get("/stats", h.handleStats)
		r.Get("/test-ai", h.handleTestAI)
		r.Route("/session/{sessionID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/chat/{characterID}", h.handleChatHistory)
			r.Post("/accusation", h.handleBeginAccusation)
			r.Post("/accuse", h.handleAccuse)
			r.Post("/end", h.handleEnd)
		})
	})
}

type createResponse struct {
	SessionID          string               `json:"sessionId"`
	Phase              game.Phase           `json:"gamePhase"`
	QuestionCounts     map[character.ID]int `json:"questionCounts"`
	RemainingQuestions map[character.ID]int `json:"remainingQuestions"`
	MaxQuestions       int                  `json:"maxQuestions"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	summary := h.registry.Create(r.Context()).Summary()
	utils.RespondJSON(w, http.StatusCreated, createResponse{
		SessionID:          summary.ID,
		Phase:              summary.Phase,
		QuestionCounts:     summary.QuestionCounts,
		RemainingQuestions: summary.RemainingQuestions,
		MaxQuestions:       summary.MaxQuestions,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	session, err := h.registry.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err, h.development)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session.Summary())
}

type historyResponse struct {
	CharacterID        character.ID `json:"characterId"`
	ChatHistory        []game.Entry `json:"chatHistory"`
	QuestionCount      int          `json:"questionCount"`
	RemainingQuestions int          `json:"remainingQuestions"`
	CanAsk             bool         `json:"canAsk"`
	IsActive           bool         `json:"isActive"`
}

func (h *Handler) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := character.ParseID(chi.URLParam(r, "characterID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Agent not found")
		return
	}

	session, err := h.registry.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err, h.development)
		return
	}

	var resp historyResponse
	_ = session.Do(func(st *game.State) error {
		resp = historyResponse{
			CharacterID:        id,
			ChatHistory:        st.Transcript(id),
			QuestionCount:      st.QuestionCounts[id],
			RemainingQuestions: st.Remaining(id),
			CanAsk:             st.CanAsk(id) && st.Phase == game.PhaseInvestigation,
			IsActive:           st.IsActive,
		}
		return nil
	})
	if resp.ChatHistory == nil {
		resp.ChatHistory = []game.Entry{}
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBeginAccusation(w http.ResponseWriter, r *http.Request) {
	summary, err := h.registry.BeginAccusation(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err, h.development)
		return
	}
	utils.RespondJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleAccuse(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SuspectID string `json:"suspectId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SuspectID == "" {
		utils.RespondError(w, http.StatusBadRequest, "suspectId is required")
		return
	}

	// Unknown suspects are scored as wrong rather than rejected.
	suspect, _ := character.ParseID(payload.SuspectID)

	verdict, err := h.registry.Accuse(r.Context(), chi.URLParam(r, "sessionID"), suspect)
	if err != nil {
		apierr.Write(w, err, h.development)
		return
	}
	utils.RespondJSON(w, http.StatusOK, verdict)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	reveal, err := h.registry.End(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err, h.development)
		return
	}
	utils.RespondJSON(w, http.StatusOK, reveal)
}

type statsResponse struct {
	TotalSessions  int           `json:"totalSessions"`
	ActiveSessions int           `json:"activeSessions"`
	SessionTimeout int64         `json:"sessionTimeout"`
	Timestamp      time.Time     `json:"timestamp"`
	Ledger         store.Summary `json:"ledger"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.registry.Stats()

	ledger, err := h.ledger.Summary(r.Context())
	if err != nil {
		log.Printf("[game] ledger summary failed: %v", err)
	}

	utils.RespondJSON(w, http.StatusOK, statsResponse{
		TotalSessions:  stats.TotalSessions,
		ActiveSessions: stats.ActiveSessions,
		SessionTimeout: stats.SessionTimeout.Milliseconds(),
		Timestamp:      time.Now().UTC(),
		Ledger:         ledger,
	})
}

func (h *Handler) handleTestAI(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "ai provider unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	result, err := h.pinger.Ping(ctx)
	if err != nil {
		log.Printf("[game] provider ping failed: %v", err)
		body := map[string]any{"success": false}
		if h.development {
			body["details"] = err.Error()
		}
		utils.RespondErrorWith(w, http.StatusBadGateway, "AI provider connection failed", body)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}
