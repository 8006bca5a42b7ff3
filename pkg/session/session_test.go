package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-farmform/internal/fakeapi"
	"github.com/goliatone/go-farmform/pkg/client"
)

type memStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemStore() *memStore { return &memStore{items: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestFromTokensReadsClaims(t *testing.T) {
	exp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	access := signed(t, jwt.MapClaims{
		"userId":     "u-1",
		"username":   "ana",
		"email":      "ana@example.com",
		"isVerified": true,
		"role":       "ADMIN",
		"exp":        exp.Unix(),
	})

	got, err := FromTokens(access, " r-1 ")
	if err != nil {
		t.Fatalf("FromTokens: %v", err)
	}
	want := Session{
		AccessToken:  access,
		RefreshToken: "r-1",
		UserID:       "u-1",
		Username:     "ana",
		Email:        "ana@example.com",
		Role:         "ADMIN",
		Verified:     true,
		ExpiresAt:    exp,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}
	if !got.IsAdmin() || !got.Expired(exp) || got.Expired(exp.Add(-time.Second)) {
		t.Fatalf("unexpected helpers for %+v", got)
	}
}

func TestFromTokensRejectsGarbage(t *testing.T) {
	if _, err := FromTokens("", "r"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("empty token error = %v", err)
	}
	if _, err := FromTokens("not.a.jwt", "r"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token error = %v", err)
	}
}

func TestManagerPersistsAndRehydrates(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	access := signed(t, jwt.MapClaims{"userId": "u-1", "email": "ana@example.com"})

	m := NewManager(store)
	if err := m.StoreTokens(ctx, access, "r-1"); err != nil {
		t.Fatalf("StoreTokens: %v", err)
	}
	if _, ok := store.items[StorageKey]; !ok {
		t.Fatalf("session not persisted under %q", StorageKey)
	}

	again := NewManager(store)
	s, ok, err := again.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if s.UserID != "u-1" || s.RefreshToken != "r-1" {
		t.Fatalf("rehydrated session = %+v", s)
	}
	token, _ := again.AccessToken(ctx)
	if token != access {
		t.Fatalf("access token = %q", token)
	}

	if err := again.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := store.items[StorageKey]; ok {
		t.Fatalf("session still persisted after Clear")
	}
	if _, err := again.RefreshToken(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("RefreshToken after clear = %v", err)
	}
	if token, _ := again.AccessToken(ctx); token != "" {
		t.Fatalf("access token after clear = %q", token)
	}
}

func TestManagerDiscardsCorruptSession(t *testing.T) {
	store := newMemStore()
	store.items[StorageKey] = []byte("{broken")
	s, ok, err := NewManager(store).Load(context.Background())
	if err != nil || ok || s.Valid() {
		t.Fatalf("Load = %+v, %v, %v", s, ok, err)
	}
}

func TestStoreTokensKeepsProfile(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil)
	first := signed(t, jwt.MapClaims{"userId": "u-1", "username": "ana", "role": "USER", "isVerified": true})
	if err := m.StoreTokens(ctx, first, "r-1"); err != nil {
		t.Fatalf("StoreTokens: %v", err)
	}
	second := signed(t, jwt.MapClaims{"email": "ana@example.com"})
	if err := m.StoreTokens(ctx, second, ""); err != nil {
		t.Fatalf("StoreTokens: %v", err)
	}
	got, _ := m.Current()
	if got.UserID != "u-1" || got.Username != "ana" || got.Email != "ana@example.com" || got.RefreshToken != "r-1" || !got.Verified {
		t.Fatalf("merged session = %+v", got)
	}

	third := signed(t, jwt.MapClaims{"isVerified": false})
	if err := m.StoreTokens(ctx, third, ""); err != nil {
		t.Fatalf("StoreTokens: %v", err)
	}
	if got, _ := m.Current(); got.Verified {
		t.Fatalf("explicit isVerified=false ignored: %+v", got)
	}
	if id, err := m.UserID(ctx); err != nil || id != "u-1" {
		t.Fatalf("UserID = %q, %v", id, err)
	}
}

func TestManagerLoginAndRefreshThroughClient(t *testing.T) {
	api := fakeapi.New()
	server := httptest.NewServer(api)
	defer server.Close()
	userID := api.AddUser("ana@example.com", "secret1", "ana", "USER")
	fieldID := api.SeedField(userID, "North")

	ctx := context.Background()
	m := NewManager(newMemStore())
	c, err := client.New(server.URL, client.WithTokenSource(m))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	s, err := m.Login(ctx, c, client.Credentials{Email: "ana@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.UserID != userID || !s.Verified || s.ExpiresAt.IsZero() {
		t.Fatalf("session = %+v", s)
	}

	api.RevokeAccessTokens()
	fields, err := c.ListFields(ctx, userID)
	if err != nil || len(fields) != 1 || fields[0].ID != fieldID {
		t.Fatalf("ListFields = %+v, %v", fields, err)
	}
	renewed, _ := m.Current()
	if renewed.AccessToken == s.AccessToken || renewed.UserID != userID {
		t.Fatalf("session not renewed: %+v", renewed)
	}

	if _, err := m.Login(ctx, c, client.Credentials{Email: "ana@example.com", Password: "nope"}); err == nil {
		t.Fatalf("expected login failure")
	}
}
