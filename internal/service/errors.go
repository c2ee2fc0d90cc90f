package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by every public operation. Callers match them with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyClosed = errors.New("record is already closed")
	ErrFormClosed    = errors.New("form is closed")
	ErrValidation    = errors.New("validation failed")
	ErrDependency    = errors.New("dependency failure")
	ErrConflict      = errors.New("record changed concurrently")
	ErrJobLocked     = errors.New("job is already running")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token has expired")
)

// NotFound flavours keep the entity name in the message while still matching ErrNotFound.
var (
	ErrClientNotFound         = fmt.Errorf("client %w", ErrNotFound)
	ErrQuestionNotFound       = fmt.Errorf("question %w", ErrNotFound)
	ErrTemplateNotFound       = fmt.Errorf("template %w", ErrNotFound)
	ErrFeedbackFormNotFound   = fmt.Errorf("feedback form %w", ErrNotFound)
	ErrTrackingRecordNotFound = fmt.Errorf("tracking record %w", ErrNotFound)
	ErrUserNotFound           = fmt.Errorf("user %w", ErrNotFound)
	ErrAssignmentNotFound     = fmt.Errorf("assignment %w", ErrNotFound)
	ErrSubmissionNotFound     = fmt.Errorf("submission %w", ErrNotFound)
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func dependencyError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}
