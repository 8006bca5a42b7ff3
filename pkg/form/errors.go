package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrBusy is returned when Submit is called while a submission is in flight.
	ErrBusy = errors.New("form: submission in progress")
	// ErrClosed is returned once the container has been closed.
	ErrClosed = errors.New("form: container closed")
	// ErrNoSubmitter is returned when Submit runs without a configured Submitter.
	ErrNoSubmitter = errors.New("form: submitter not configured")
	// ErrInvalidPath reports an empty or malformed value path.
	ErrInvalidPath = errors.New("form: invalid value path")
)

// ValidationError carries the field errors that blocked a submission.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "form: validation failed"
	}
	keys := make([]string, 0, len(e.Errors))
	for key := range e.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return fmt.Sprintf("form: validation failed: %s", strings.Join(keys, ", "))
}

// FieldErrors returns a copy of the field errors.
func (e *ValidationError) FieldErrors() map[string]string {
	if e == nil {
		return nil
	}
	return cloneErrors(e.Errors)
}
