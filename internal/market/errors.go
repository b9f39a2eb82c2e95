package market

import (
	"fmt"

	"github.com/iamwavecut/pasarbot/internal/errors"
)

var (
	ErrInvalidLink     = fmt.Errorf("link must point to x.com or twitter.com: %w", errors.ErrValidation)
	ErrInvalidDays     = fmt.Errorf("days must be between %d and %d: %w", MinDays, MaxDays, errors.ErrValidation)
	ErrNoComments      = fmt.Errorf("at least one comment is required: %w", errors.ErrValidation)
	ErrUnknownEmblem   = fmt.Errorf("unknown engagement emblem: %w", errors.ErrValidation)
	ErrNoOpenComments  = fmt.Errorf("no open comment tasks: %w", errors.ErrNotFound)
	ErrRequestNotFound = fmt.Errorf("request not found or expired: %w", errors.ErrNotFound)
)

// TaskNumberError reports a comment number outside 1..Open.
type TaskNumberError struct {
	Open int
}

func (e *TaskNumberError) Error() string {
	return fmt.Sprintf("task number must be between 1 and %d", e.Open)
}

func (e *TaskNumberError) Unwrap() error { return errors.ErrValidation }
