// Package client is the remote store proxy for the farm REST backend. Calls
// carry a bearer token from a TokenSource; a missing token fails fast with
// ErrUnauthenticated before any request is issued, and a 401 triggers one
// transparent token refresh. List responses can be cached locally with a TTL
// and are invalidated by resource prefix when a mutation succeeds. Report and
// measurement mutations that fail at the transport level can be persisted to
// a queue for a later explicit sync.
package client
