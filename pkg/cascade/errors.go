package cascade

import "errors"

var (
	// ErrNotReady is returned when a selection is made before its parent tier.
	ErrNotReady = errors.New("cascade: parent tier not selected")
	// ErrNotOffered is returned when the id is not among the loaded options.
	ErrNotOffered = errors.New("cascade: option not offered")
	// ErrSuperseded is returned when a fetch result was discarded because the
	// tier changed while it was in flight.
	ErrSuperseded = errors.New("cascade: selection superseded")
	// ErrEmptySelection is returned by SelectVariables without ids.
	ErrEmptySelection = errors.New("cascade: empty variable selection")
	// ErrClosed is returned once the cascade has been closed.
	ErrClosed = errors.New("cascade: closed")
)
