package cmd

import (
	"errors"
	"fmt"
)

// ErrUsage reports a malformed command line. Returned as is for a wrong
// argument count; wrapped when a specific flag value is at fault.
var ErrUsage = errors.New("usage error")

// ErrStartAfterEnd represents an invalid time window where start > end.
var ErrStartAfterEnd = &timeRangeError{"start is after end"}

type timeRangeError struct{ s string }

func (e *timeRangeError) Error() string { return e.s }

// InputNotFoundError means the input path is missing or not a regular file.
type InputNotFoundError struct {
	Path string
	Err  error
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("the file %s does not exist or is not a regular file", e.Path)
}

func (e *InputNotFoundError) Unwrap() error { return e.Err }

// IOFailureError wraps an error raised while opening or reading the input.
type IOFailureError struct {
	Input string
	Err   error
}

func (e *IOFailureError) Error() string {
	return fmt.Sprintf("error reading %s: %v", e.Input, e.Err)
}

func (e *IOFailureError) Unwrap() error { return e.Err }
