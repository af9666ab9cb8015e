package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy shared by the pipeline components.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	// ErrTransport marks a network, quota or provider failure (per document, recorded).
	ErrTransport = errors.New("transport failure")
	// ErrSchemaMismatch marks a response that does not validate against the record schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrPersistence marks an artifact or ledger write failure. Runs abort on it.
	ErrPersistence = errors.New("persistence failure")
	// ErrMalformedRow marks a ledger row that is skipped on read.
	ErrMalformedRow = errors.New("malformed ledger row")
)

// Error codes used in AppError.Code.
const (
	CodeConfig      = "CONFIG_ERROR"
	CodePersistence = "PERSISTENCE_ERROR"
	CodeTransport   = "TRANSPORT_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// PersistenceError tags err as an artifact/ledger write failure.
func PersistenceError(message string, err error) error {
	return NewAppError(CodePersistence, message, errors.Join(ErrPersistence, err))
}

// IsPersistence reports whether err must abort a run.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
