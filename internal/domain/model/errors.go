package model

import (
	"errors"
	"fmt"
)

// Rejection kinds. Every failure surfaced by the core wraps one of these.
var (
	ErrUnknownReference    = errors.New("unknown reference")
	ErrDuplicateEvaluation = errors.New("duplicate evaluation")
	ErrIncompleteCriteria  = errors.New("incomplete criteria")
	ErrInvalidScore        = errors.New("invalid score")
	ErrValidation          = errors.New("validation error")
	ErrDuplicateEntity     = errors.New("duplicate entity")
	ErrPersistence         = errors.New("persistence failure")
	ErrNotFound            = errors.New("not found")
)

// RejectionError describes why an operation refused its input.
type RejectionError struct {
	Op     string
	Kind   error
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
}

func (e *RejectionError) Unwrap() error { return e.Kind }

// Reject builds a RejectionError with a formatted detail.
func Reject(op string, kind error, format string, args ...any) error {
	return &RejectionError{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// DuplicateEvaluationError names the collision so it can be shown to a user.
type DuplicateEvaluationError struct {
	JudgeID        string
	JudgeName      string
	ContestantID   string
	ContestantName string
	Category       string
}

func (e *DuplicateEvaluationError) Error() string {
	return fmt.Sprintf("judge %s already evaluated %s in category %s", e.JudgeName, e.ContestantName, e.Category)
}

func (e *DuplicateEvaluationError) Unwrap() error { return ErrDuplicateEvaluation }

// Reason maps an error to a short label for metrics and API codes.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownReference):
		return "unknown_reference"
	case errors.Is(err, ErrDuplicateEvaluation):
		return "duplicate_evaluation"
	case errors.Is(err, ErrIncompleteCriteria):
		return "incomplete_criteria"
	case errors.Is(err, ErrInvalidScore):
		return "invalid_score"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrDuplicateEntity):
		return "duplicate_entity"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
