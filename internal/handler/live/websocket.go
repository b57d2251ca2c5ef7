// Package live serves interrogation turns over a WebSocket connection.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/turing-station/backend/internal/handler/apierr"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
	"github.com/turing-station/backend/internal/service/interrogation"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Sessions validates the session before the upgrade.
type Sessions interface {
	Get(ctx context.Context, id string) (*game.Session, error)
}

// Converser starts one interrogation turn.
type Converser interface {
	Converse(ctx context.Context, sessionID string, characterID character.ID, message string) (*interrogation.Turn, error)
}

// Handler upgrades /agents/{characterID}/ws and runs one turn per inbound question.
type Handler struct {
	sessions    Sessions
	cast        character.Store
	coord       Converser
	development bool
	upgrader    websocket.Upgrader
}

func New(sessions Sessions, cast character.Store, coord Converser, development bool) *Handler {
	return &Handler{
		sessions:    sessions,
		cast:        cast,
		coord:       coord,
		development: development,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/agents/{characterID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type questionPayload struct {
	Message string `json:"message"`
}

type outgoingMessage struct {
	Type        string       `json:"type"`
	SessionID   string       `json:"sessionId,omitempty"`
	CharacterID character.ID `json:"characterId,omitempty"`
	Data        any          `json:"data,omitempty"`
	Timestamp   int64        `json:"timestamp"`
}

type connection struct {
	conn        *websocket.Conn
	sessionID   string
	characterID character.ID
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if _, err := h.sessions.Get(r.Context(), sessionID); err != nil {
		apierr.Write(w, err, h.development)
		return
	}

	id, _ := character.ParseID(chi.URLParam(r, "characterID"))
	agent, ok := h.cast.FindByID(id)
	if !ok {
		apierr.Write(w, interrogation.ErrCharacterNotFound, h.development)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] connected session=%s character=%s", sessionID, id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go pingLoop(ctx, conn)

	c := &connection{conn: conn, sessionID: sessionID, characterID: id}
	greeting, _ := h.cast.Greeting(id)
	c.send("connected", map[string]any{"name": agent.Name, "greeting": greeting})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		switch msg.Type {
		case "question":
			var payload questionPayload
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				c.sendError("invalid question payload")
				break
			}
			if !h.runTurn(ctx, c, payload.Message) {
				return
			}
		default:
			c.sendError("unsupported message type: " + msg.Type)
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

// describe always carries the provider's message; other failures stay
// generic outside development.
func (h *Handler) describe(err error) string {
	var provider *interrogation.ProviderError
	if errors.As(err, &provider) {
		return "Failed to get response from agent: " + provider.Err.Error()
	}
	if h.development && err != nil {
		return err.Error()
	}
	return "Internal server error"
}

// runTurn relays one turn and reports false once the connection is unusable.
func (h *Handler) runTurn(ctx context.Context, c *connection, message string) bool {
	turn, err := h.coord.Converse(ctx, c.sessionID, c.characterID, message)
	if err != nil {
		var quota *interrogation.QuotaError
		if errors.As(err, &quota) {
			return c.send("quota_exceeded", map[string]any{
				"questionCount": quota.Count,
				"maxQuestions":  quota.Max,
			}) == nil
		}
		_, text, _ := apierr.Status(err, h.development)
		return c.sendError(text) == nil
	}

	for ev := range turn.Events() {
		var err error
		switch ev.Kind {
		case interrogation.EventDelta:
			err = c.send("delta", map[string]any{"content": ev.Text})
		case interrogation.EventComplete:
			err = c.send("complete", ev.Completion)
		case interrogation.EventError:
			err = c.sendError(h.describe(ev.Err))
		}
		if err != nil {
			log.Printf("[websocket] relay stopped session=%s: %v", c.sessionID, err)
			return false
		}
	}
	return true
}

func (c *connection) send(kind string, data any) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.conn.WriteJSON(outgoingMessage{
		Type:        kind,
		SessionID:   c.sessionID,
		CharacterID: c.characterID,
		Data:        data,
		Timestamp:   time.Now().Unix(),
	})
	if err != nil {
		log.Printf("[websocket] write %s failed: %v", kind, err)
	}
	return err
}

func (c *connection) sendError(message string) error {
	return c.send("error", map[string]string{"message": message})
}

// pingLoop keeps the read deadline alive through pongs.
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
