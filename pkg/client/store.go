package client

import (
	"context"
	"encoding/json"
	"time"
)

// TokenSource supplies the bearer token for authenticated calls. An empty
// token means the user is signed out.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenRefresher is a TokenSource able to renew its tokens after a 401.
type TokenRefresher interface {
	TokenSource
	RefreshToken(ctx context.Context) (string, error)
	StoreTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// UserScope is implemented by token sources that know the signed-in user.
// Cached responses and queued requests are then kept per user.
type UserScope interface {
	UserID(ctx context.Context) (string, error)
}

// Cache stores raw GET responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// QueuedRequest is a mutation persisted for a later sync.
type QueuedRequest struct {
	ID        string          `json:"id"`
	Method    string          `json:"method"`
	Path      string          `json:"path"`
	Body      json.RawMessage `json:"body,omitempty"`
	Entity    string          `json:"entity"`
	TempID    string          `json:"temp_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue persists mutations that could not reach the server.
type Queue interface {
	Enqueue(ctx context.Context, item QueuedRequest) error
}

// Contract validates outgoing requests against the API description.
type Contract interface {
	CheckRequest(method, template string, body []byte) error
}

// Queueable entities.
const (
	EntityReports      = "reports"
	EntityMeasurements = "measurements"
)

// TempIDPrefix marks client-generated ids of queued creations.
const TempIDPrefix = "temp-"
