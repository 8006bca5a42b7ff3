package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-farmform/internal/fakeapi"
)

type memTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
	user    string
	cleared int
	stored  int
}

func (m *memTokens) UserID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, nil
}

func (m *memTokens) signIn(user, access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user, m.access, m.refresh = user, access, refresh
}

func (m *memTokens) AccessToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, nil
}

func (m *memTokens) RefreshToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh, nil
}

func (m *memTokens) StoreTokens(_ context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = access, refresh
	m.stored++
	return nil
}

func (m *memTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh, m.user = "", "", ""
	m.cleared++
	return nil
}

type memCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemCache() *memCache { return &memCache{items: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *memCache) InvalidatePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

type memQueue struct {
	mu    sync.Mutex
	items []QueuedRequest
}

func (m *memQueue) Enqueue(_ context.Context, item QueuedRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	return nil
}

func (m *memQueue) snapshot() []QueuedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]QueuedRequest(nil), m.items...)
}

type backend struct {
	api    *fakeapi.Server
	server *httptest.Server
	userID string
	tokens *memTokens
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	api := fakeapi.New()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	userID := api.AddUser("ana@example.com", "secret1", "ana", "USER")
	access, refresh, err := api.IssueTokens("ana@example.com")
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	return &backend{
		api:    api,
		server: server,
		userID: userID,
		tokens: &memTokens{access: access, refresh: refresh, user: userID},
	}
}

func (b *backend) client(t *testing.T, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithTokenSource(b.tokens)}, opts...)
	c, err := New(b.server.URL, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}
