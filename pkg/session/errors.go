package session

import "errors"

var (
	// ErrNoSession is returned when no user is signed in.
	ErrNoSession = errors.New("session: not signed in")
	// ErrInvalidToken reports an access token whose claims cannot be read.
	ErrInvalidToken = errors.New("session: invalid access token")
	// ErrNoStore is returned by a Manager built without a Store.
	ErrNoStore = errors.New("session: no store configured")
)
