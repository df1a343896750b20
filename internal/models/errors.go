package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when an operation needs assets or a profile
	// and none are available. No external call is made.
	ErrEmptyInput = errors.New("no reference assets or analysis profile available")

	// ErrAnalysisFailure marks a failed or unparseable identity analysis.
	ErrAnalysisFailure = errors.New("identity analysis failed")

	// ErrCredentialMissing is returned before any external call when no API key is configured.
	ErrCredentialMissing = errors.New("API key is missing")

	ErrInvalidTransition = errors.New("operation not allowed in current state")
	ErrBusy              = errors.New("another operation is in progress")
	ErrCapacityReached   = errors.New("reference asset capacity reached")
	ErrQueueEmpty        = errors.New("crop queue is empty")
	ErrNotFound          = errors.New("not found")
)

// AnalysisRemediationHint is shown to the user alongside analysis failures.
const AnalysisRemediationHint = "Check your network connectivity and API credentials (albumgen config status)."

// CredentialRemediationHint routes the user to configuration.
const CredentialRemediationHint = "Set a Gemini API key with `albumgen config set-key` or the GEMINI_API_KEY environment variable."

// AnalysisError wraps a failed analysis call with a user-facing hint.
type AnalysisError struct {
	Hint string
	Err  error
}

func NewAnalysisError(err error) *AnalysisError {
	return &AnalysisError{Hint: AnalysisRemediationHint, Err: err}
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%v: %v", ErrAnalysisFailure, e.Err)
}

func (e *AnalysisError) Unwrap() []error {
	return []error{ErrAnalysisFailure, e.Err}
}

// GenerationItemError records a single pose that failed. It is logged and
// skipped, never propagated as a pipeline failure.
type GenerationItemError struct {
	Index  int
	PoseID string
	Err    error
}

func (e *GenerationItemError) Error() string {
	return fmt.Sprintf("pose %d (%s) failed: %v", e.Index+1, e.PoseID, e.Err)
}

func (e *GenerationItemError) Unwrap() error {
	return e.Err
}
