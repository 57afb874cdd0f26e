package services

import "errors"

// Session engine error kinds. All are recoverable by the caller except
// ErrInsufficientContent, which indicates a content-catalog deficiency and is
// surfaced as-is for operator attention.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionClosed       = errors.New("session is closed")
	ErrInvalidTransition   = errors.New("invalid session state transition")
	ErrAlreadyAnswered     = errors.New("question already answered")
	ErrSessionExpired      = errors.New("session expired")
	ErrNoMoreQuestions     = errors.New("no more questions in session")
	ErrInsufficientContent = errors.New("insufficient content for selection")
	ErrConflict            = errors.New("concurrent session update conflict")
)

// Finish reasons accepted by SessionService.Finish.
const (
	FinishReasonCompleted = "completed"
	FinishReasonAbandoned = "abandoned"
)
