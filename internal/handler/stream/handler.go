package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/turing-station/backend/internal/handler/apierr"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/service/interrogation"
	"github.com/turing-station/backend/pkg/utils"
)

// Converser starts one interrogation turn.
type Converser interface {
	Converse(ctx context.Context, sessionID string, characterID character.ID, message string) (*interrogation.Turn, error)
}

// Handler relays interrogation turns as Server-Sent Events.
type Handler struct {
	coord       Converser
	development bool
}

func New(coord Converser, development bool) *Handler {
	return &Handler{coord: coord, development: development}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/agents/{characterID}/chat", h.handleChat)
}

// Frame is one SSE payload.
type Frame struct {
	Event              string       `json:"event"`
	SessionID          string       `json:"sessionId,omitempty"`
	CharacterID        character.ID `json:"characterId,omitempty"`
	Content            string       `json:"content,omitempty"`
	FullText           string       `json:"fullText,omitempty"`
	QuestionCount      int          `json:"questionCount,omitempty"`
	RemainingQuestions *int         `json:"remainingQuestions,omitempty"`
	CanAsk             *bool        `json:"canAsk,omitempty"`
	Error              string       `json:"error,omitempty"`
	Finished           bool         `json:"finished,omitempty"`
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	characterID, _ := character.ParseID(chi.URLParam(r, "characterID"))
	turn, err := h.coord.Converse(r.Context(), req.SessionID, characterID, req.Message)
	if err != nil {
		apierr.Write(w, err, h.development)
		return
	}

	// A client that goes away stops the relay; the reply is still recorded.
	stop := context.AfterFunc(r.Context(), turn.Abandon)
	defer stop()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	remaining := turn.Remaining
	if err := utils.SendSSEChunk(w, flusher, Frame{
		Event:              "start",
		SessionID:          turn.SessionID,
		CharacterID:        turn.CharacterID,
		QuestionCount:      turn.QuestionCount,
		RemainingQuestions: &remaining,
	}); err != nil {
		log.Printf("[stream] client gone before start session=%s: %v", turn.SessionID, err)
		turn.Abandon()
		return
	}

	for ev := range turn.Events() {
		frame := h.frameFor(turn, ev)
		if err := utils.SendSSEChunk(w, flusher, frame); err != nil {
			log.Printf("[stream] relay stopped session=%s character=%s: %v", turn.SessionID, turn.CharacterID, err)
			return
		}
	}
	log.Printf("[stream] completed session=%s character=%s", turn.SessionID, turn.CharacterID)
}

func (h *Handler) frameFor(turn *interrogation.Turn, ev interrogation.Event) Frame {
	frame := Frame{
		Event:       string(ev.Kind),
		SessionID:   turn.SessionID,
		CharacterID: turn.CharacterID,
	}

	switch ev.Kind {
	case interrogation.EventDelta:
		frame.Content = ev.Text
	case interrogation.EventComplete:
		c := ev.Completion
		frame.FullText = c.FullText
		frame.QuestionCount = c.QuestionCount
		frame.RemainingQuestions = &c.Remaining
		frame.CanAsk = &c.CanAsk
		frame.Finished = true
	case interrogation.EventError:
		frame.Error = describe(ev.Err, h.development)
		frame.Finished = true
	}
	return frame
}

func describe(err error, development bool) string {
	var provider *interrogation.ProviderError
	if errors.As(err, &provider) {
		return "Failed to get response from agent: " + provider.Err.Error()
	}
	if development && err != nil {
		return err.Error()
	}
	return "Internal server error"
}
