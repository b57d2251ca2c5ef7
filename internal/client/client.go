// Package client talks to the interrogation API over HTTP and SSE.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/turing-station/backend/internal/handler/stream"
	"github.com/turing-station/backend/internal/model/character"
	"github.com/turing-station/backend/internal/model/game"
)

// APIError is a non-2xx JSON response.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// QuotaExhausted reports whether the server refused for lack of questions.
func (e *APIError) QuotaExhausted() bool {
	return e.Status == http.StatusForbidden
}

// ErrStreamTruncated means the event stream ended without a terminal frame.
var ErrStreamTruncated = errors.New("event stream ended before completion")

// NewGame is the response of POST /api/game/new.
type NewGame struct {
	SessionID          string               `json:"sessionId"`
	Phase              game.Phase           `json:"gamePhase"`
	QuestionCounts     map[character.ID]int `json:"questionCounts"`
	RemainingQuestions map[character.ID]int `json:"remainingQuestions"`
	MaxQuestions       int                  `json:"maxQuestions"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. A nil httpClient uses one without a
// global timeout so long replies can stream.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) NewGame(ctx context.Context) (NewGame, error) {
	var out NewGame
	err := c.do(ctx, http.MethodPost, "/api/game/new", nil, &out)
	return out, err
}

func (c *Client) Session(ctx context.Context, sessionID string) (game.Summary, error) {
	var out game.Summary
	err := c.do(ctx, http.MethodGet, "/api/game/session/"+sessionID, nil, &out)
	return out, err
}

func (c *Client) Agents(ctx context.Context) ([]character.Summary, error) {
	var out []character.Summary
	err := c.do(ctx, http.MethodGet, "/api/agents", nil, &out)
	return out, err
}

func (c *Client) Greeting(ctx context.Context, id character.ID) (string, error) {
	var out struct {
		Greeting string `json:"greeting"`
	}
	err := c.do(ctx, http.MethodGet, "/api/agents/"+string(id)+"/greeting", nil, &out)
	return out.Greeting, err
}

func (c *Client) Accuse(ctx context.Context, sessionID string, suspect character.ID) (game.Verdict, error) {
	var out game.Verdict
	body := map[string]string{"suspectId": string(suspect)}
	err := c.do(ctx, http.MethodPost, "/api/game/session/"+sessionID+"/accuse", body, &out)
	return out, err
}

func (c *Client) End(ctx context.Context, sessionID string) (game.Reveal, error) {
	var out game.Reveal
	err := c.do(ctx, http.MethodPost, "/api/game/session/"+sessionID+"/end", nil, &out)
	return out, err
}

// Ask posts a question and calls onFrame for every SSE frame in order. It
// returns the terminal complete or error frame.
func (c *Client) Ask(ctx context.Context, sessionID string, id character.ID, message string, onFrame func(stream.Frame)) (stream.Frame, error) {
	payload, err := json.Marshal(map[string]string{"sessionId": sessionID, "message": message})
	if err != nil {
		return stream.Frame{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/agents/"+string(id)+"/chat", bytes.NewReader(payload))
	if err != nil {
		return stream.Frame{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return stream.Frame{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return stream.Frame{}, decodeError(resp)
	}
	return readFrames(resp.Body, onFrame)
}

func readFrames(r io.Reader, onFrame func(stream.Frame)) (stream.Frame, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var frame stream.Frame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			return stream.Frame{}, fmt.Errorf("decode sse frame: %w", err)
		}
		if onFrame != nil {
			onFrame(frame)
		}
		if frame.Finished {
			return frame, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return stream.Frame{}, err
	}
	return stream.Frame{}, ErrStreamTruncated
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
	var fields map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&fields); err == nil {
		apiErr.Fields = fields
		if msg, ok := fields["error"].(string); ok {
			apiErr.Message = msg
		}
	}
	return apiErr
}
