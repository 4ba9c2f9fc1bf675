package errors

import (
	"errors"
	"fmt"
)

// Application-specific errors
var (
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrConflict              = errors.New("resource conflict")
	ErrRateLimit             = errors.New("rate limit exceeded")
	ErrServiceUnavailable    = errors.New("service unavailable")
	ErrTimeout               = errors.New("operation timeout")
	ErrClassifierUnavailable = errors.New("zero-shot classifier unavailable")
	ErrStoreNotConfigured    = errors.New("store not configured")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrInvalidInput) match any ValidationError.
func (e ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error `json:"errors"`
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the MultiError
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (e *MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ErrOrNil returns nil when nothing was collected.
func (e *MultiError) ErrOrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return *e
}

// DatabaseError represents a database-related error
type DatabaseError struct {
	Operation string
	Err       error
}

func (e DatabaseError) Error() string {
	return fmt.Sprintf("database error during %s: %v", e.Operation, e.Err)
}

func (e DatabaseError) Unwrap() error {
	return e.Err
}

// ClassifierError wraps a failure talking to the zero-shot classifier.
// Stage names the step that failed, e.g. "init", "classify" or "decode".
type ClassifierError struct {
	Stage string
	Err   error
}

func (e ClassifierError) Error() string {
	return fmt.Sprintf("classifier error at stage %s: %v", e.Stage, e.Err)
}

func (e ClassifierError) Unwrap() []error {
	return []error{ErrClassifierUnavailable, e.Err}
}

// PipelineError represents an intake pipeline failure
type PipelineError struct {
	ReportID string
	Stage    string
	Err      error
}

func (e PipelineError) Error() string {
	if e.ReportID == "" {
		return fmt.Sprintf("pipeline error at stage %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("pipeline error for report %s at stage %s: %v", e.ReportID, e.Stage, e.Err)
}

func (e PipelineError) Unwrap() error {
	return e.Err
}
