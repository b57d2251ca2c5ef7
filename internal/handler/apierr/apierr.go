// Package apierr maps domain errors onto HTTP responses.
package apierr

import (
	"errors"
	"log"
	"net/http"

	"github.com/turing-station/backend/internal/model/game"
	gamesvc "github.com/turing-station/backend/internal/service/game"
	"github.com/turing-station/backend/internal/service/interrogation"
	"github.com/turing-station/backend/pkg/utils"
)

// Status classifies err and returns the HTTP status, the client message and
// any extra body fields.
func Status(err error, development bool) (int, string, map[string]any) {
	var quota *interrogation.QuotaError
	switch {
	case errors.As(err, &quota):
		return http.StatusForbidden, "Agent has reached maximum questions limit", map[string]any{
			"questionCount": quota.Count,
			"maxQuestions":  quota.Max,
			"characterId":   quota.CharacterID,
		}
	case errors.Is(err, gamesvc.ErrSessionNotFound):
		return http.StatusNotFound, "Game session not found", nil
	case errors.Is(err, interrogation.ErrCharacterNotFound):
		return http.StatusNotFound, "Agent not found", nil
	case errors.Is(err, gamesvc.ErrSessionIDRequired),
		errors.Is(err, interrogation.ErrMessageRequired):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, game.ErrInvalidPhase):
		return http.StatusConflict, err.Error(), nil
	}

	if development {
		return http.StatusInternalServerError, "Internal server error", map[string]any{"details": err.Error()}
	}
	return http.StatusInternalServerError, "Internal server error", nil
}

// Write logs unexpected errors and writes the classified response.
func Write(w http.ResponseWriter, err error, development bool) {
	status, message, extra := Status(err, development)
	if status == http.StatusInternalServerError {
		log.Printf("[api] internal error: %v", err)
	}
	utils.RespondErrorWith(w, status, message, extra)
}
