package offline

import "errors"

var (
	// ErrSyncInProgress is returned when Sync is called while another sync runs.
	ErrSyncInProgress = errors.New("offline: sync already in progress")
	// ErrUnresolved marks an item whose temporary references have no server id yet.
	ErrUnresolved = errors.New("offline: unresolved temporary id")
)
