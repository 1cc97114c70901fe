package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every run failure wraps exactly one of these.
var (
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrInputRead             = errors.New("input read error")
	ErrUpload                = errors.New("upload error")
)

// Conditions inside the kinds, used for more specific messages.
var (
	ErrFileTooLarge   = errors.New("file too large")
	ErrEmptyFile      = errors.New("empty file")
	ErrInvalidJSON    = errors.New("invalid json")
	ErrVerifyMismatch = errors.New("verify mismatch")
)

// StageError is a failure in one phase of a run.
type StageError struct {
	Phase Phase
	Kind  error
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func stageErr(phase Phase, kind, err error) *StageError {
	return &StageError{Phase: phase, Kind: kind, Err: err}
}
