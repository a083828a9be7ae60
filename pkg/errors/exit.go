package errors

import stderrors "errors"

type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

// WithExitCode attaches a process exit code to err. The host reports it
// instead of the generic failure code when err ends the run task.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &exitError{err: err, code: code}
}

// ExitCodeOf returns the first exit code attached anywhere in err's chain.
func ExitCodeOf(err error) (int, bool) {
	var coder interface{ ExitCode() int }
	if stderrors.As(err, &coder) {
		return coder.ExitCode(), true
	}
	return 0, false
}

// Personal.AI order the ending
