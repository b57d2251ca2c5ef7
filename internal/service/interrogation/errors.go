package interrogation

import (
	"errors"
	"fmt"

	"github.com/turing-station/backend/internal/model/character"
)

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrMessageRequired   = errors.New("message is required")
	ErrQuotaExceeded     = errors.New("question quota exceeded")
)

// QuotaError carries the counters of a character that has no questions left.
type QuotaError struct {
	CharacterID character.ID
	Count       int
	Max         int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s has already answered %d of %d questions", e.CharacterID, e.Count, e.Max)
}

func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// ProviderError wraps a failure of the completion provider. The question that
// triggered it stays charged.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return "completion provider failed: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
