package character

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turing-station/backend/internal/handler/apierr"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
	"github.com/turing-station/backend/pkg/utils"
)

// Sessions resolves a live session for the status route.
type Sessions interface {
	Get(ctx context.Context, id string) (*game.Session, error)
}

// Handler exposes the static cast and per-session question status.
type Handler struct {
	cast        character.Store
	sessions    Sessions
	development bool
}

func New(cast character.Store, sessions Sessions, development bool) *Handler {
	return &Handler{cast: cast, sessions: sessions, development: development}
}

// RegisterRoutes mounts the read-only routes. The chat and ws routes under
// the same prefix are mounted by their own handlers.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/agents", h.handleList)
	r.Get("/agents/{characterID}", h.handleGet)
	r.Get("/agents/{characterID}/greeting", h.handleGreeting)
	r.Get("/agents/{characterID}/status/{sessionID}", h.handleStatus)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	items := h.cast.List()
	out := make([]character.Summary, 0, len(items))
	for _, c := range items {
		out = append(out, c.Summary())
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (character.Character, bool) {
	id, _ := character.ParseID(chi.URLParam(r, "characterID"))
	c, ok := h.cast.FindByID(id)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "Agent not found")
		return character.Character{}, false
	}
	return c, true
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, c.Summary())
}

func (h *Handler) handleGreeting(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	greeting, _ := h.cast.Greeting(c.ID)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"characterId": c.ID,
		"name":        c.Name,
		"greeting":    greeting,
	})
}

type statusResponse struct {
	CharacterID        character.ID `json:"characterId"`
	QuestionCount      int          `json:"questionCount"`
	RemainingQuestions int          `json:"remainingQuestions"`
	CanAsk             bool         `json:"canAsk"`
	MaxQuestions       int          `json:"maxQuestions"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	session, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Write(w, err, h.development)
		return
	}

	var resp statusResponse
	_ = session.Do(func(st *game.State) error {
		resp = statusResponse{
			CharacterID:        c.ID,
			QuestionCount:      st.QuestionCounts[c.ID],
			RemainingQuestions: st.Remaining(c.ID),
			CanAsk:             st.CanAsk(c.ID) && st.Phase == game.PhaseInvestigation,
			MaxQuestions:       st.MaxQuestions,
		}
		return nil
	})
	utils.RespondJSON(w, http.StatusOK, resp)
}
