package client

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrUnauthenticated is returned when no access token is available or the
	// session could not be refreshed. No request is issued in the first case.
	ErrUnauthenticated = errors.New("client: unauthenticated")
	// ErrQueued is matched by errors returned when a mutation was persisted to
	// the offline queue instead of reaching the server.
	ErrQueued = errors.New("client: request queued for sync")
	// ErrContract is returned when a request violates the API contract.
	ErrContract = errors.New("client: request violates api contract")
	// ErrBaseURL reports a missing or malformed base URL.
	ErrBaseURL = errors.New("client: invalid base url")
	// ErrOtherUser is returned when replaying a request queued by another user.
	ErrOtherUser = errors.New("client: request queued by another user")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method string
	Path   string
	Status int
	// Message is the joined form-level message, or the status text when the
	// body carried none.
	Message string
	// Fields maps request fields to the first message naming them.
	Fields map[string]string
	// Form lists the messages not attributable to a field.
	Form []string
}

func (e *APIError) Error() string {
	if e == nil {
		return "client: api error"
	}
	msg := e.Message
	if msg == "" && len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for key := range e.Fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		msg = "invalid " + strings.Join(keys, ", ")
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("client: %s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// StatusCode returns the HTTP status.
func (e *APIError) StatusCode() int {
	if e == nil || e.Status <= 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// FieldErrors returns a copy of the field-scoped messages.
func (e *APIError) FieldErrors() map[string]string {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		out[k] = v
	}
	return out
}

// IsNotFound reports whether err is a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// QueuedError reports a mutation persisted to the offline queue.
type QueuedError struct {
	Item  QueuedRequest
	Cause error
}

func (e *QueuedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s %s: %v", ErrQueued, e.Item.Method, e.Item.Path, e.Cause)
	}
	return fmt.Sprintf("%s: %s %s", ErrQueued, e.Item.Method, e.Item.Path)
}

// Is matches ErrQueued.
func (e *QueuedError) Is(target error) bool { return target == ErrQueued }

func (e *QueuedError) Unwrap() error { return e.Cause }

// QueuedTempID returns the temporary id assigned to a queued creation.
func QueuedTempID(err error) (string, bool) {
	var qe *QueuedError
	if !errors.As(err, &qe) || qe.Item.TempID == "" {
		return "", false
	}
	return qe.Item.TempID, true
}
