package engine

import "errors"

// PermanentError marks an engine failure that retrying cannot fix, such
// as malformed input or a deterministic empty result. Any engine error
// not wrapped as permanent is treated as transient and retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent engine error: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps an error as a permanent engine failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether the error chain contains a permanent
// engine failure.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}

// ErrEmptyResult indicates the engine produced no usable output.
var ErrEmptyResult = errors.New("engine returned empty result")
