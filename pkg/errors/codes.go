package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique identifier for specific error conditions in the host.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = 1000

	// Configuration
	ErrCodeConfigLoad    ErrorCode = 1001
	ErrCodeConfigInvalid ErrorCode = 1002

	// Capacity
	ErrCodeCapacityTuning ErrorCode = 2001

	// Run task
	ErrCodeCommandExecution ErrorCode = 3001
	ErrCodeEngineStartup    ErrorCode = 3002
	ErrCodeShutdownInduced  ErrorCode = 3003

	// Lifecycle
	ErrCodeInvalidTransition ErrorCode = 4001
	ErrCodeControl           ErrorCode = 4002
)

// HostError is a custom error type that provides structured error information,
// including an error code, the operation being performed, and the underlying cause.
type HostError struct {
	// Code is the specific error code.
	Code ErrorCode
	// Msg is a human-readable description of the error.
	Msg string
	// Operation describes the action being performed when the error occurred.
	Operation string
	// Err is the underlying error that caused this error, if any.
	Err error
}

// Error returns a formatted string representation of the error.
func (e *HostError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %s (cause: %v)", e.Code, e.Operation, e.Msg, e.Err)
	}
	return fmt.Sprintf("[%d] %s: %s", e.Code, e.Operation, e.Msg)
}

// Unwrap returns the underlying error.
func (e *HostError) Unwrap() error {
	return e.Err
}

// New creates a new HostError with the specified code, operation, message, and underlying error.
func New(code ErrorCode, op, msg string, err error) error {
	return &HostError{
		Code:      code,
		Msg:       msg,
		Operation: op,
		Err:       err,
	}
}

// CodeOf returns the code of the outermost HostError in the chain,
// or ErrCodeUnknown when there is none.
func CodeOf(err error) ErrorCode {
	var he *HostError
	if stderrors.As(err, &he) {
		return he.Code
	}
	return ErrCodeUnknown
}

// Is reports whether any HostError in the chain carries the given code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if he, ok := err.(*HostError); ok && he.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsCancellation reports whether err is shaped like a cancellation.
func IsCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// Personal.AI order the ending
