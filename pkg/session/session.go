// Package session keeps the signed-in user's tokens and profile. The profile
// is read from the access token claims without verifying the signature; the
// backend remains the authority. A Manager persists the session under a
// fixed key and satisfies client.TokenRefresher.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-farmform/pkg/client"
)

// StorageKey is the key the session is persisted under.
const StorageKey = "farmform.session"

// Session is the signed-in user.
type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Verified     bool      `json:"isVerified"`
	ExpiresAt    time.Time `json:"expiresAt,omitzero"`
}

// Valid reports whether the session carries an access token.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

// Expired reports whether the access token expiry has passed at now. A
// session without an expiry never expires client-side.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// IsAdmin reports whether the user holds the ADMIN role.
func (s Session) IsAdmin() bool {
	return strings.EqualFold(s.Role, "ADMIN")
}

// FromTokens builds a session from a token pair, reading the profile from the
// access token claims.
func FromTokens(access, refresh string) (Session, error) {
	access = strings.TrimSpace(access)
	if access == "" {
		return Session{}, ErrNoSession
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	s := Session{
		AccessToken:  access,
		RefreshToken: strings.TrimSpace(refresh),
		UserID:       stringClaim(claims, "userId"),
		Username:     stringClaim(claims, "username"),
		Email:        stringClaim(claims, "email"),
		Role:         stringClaim(claims, "role"),
	}
	if s.UserID == "" {
		s.UserID = stringClaim(claims, "sub")
	}
	if verified, ok := claims["isVerified"].(bool); ok {
		s.Verified = verified
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time.UTC()
	}
	return s, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// Store persists raw session bytes.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Authenticator exchanges credentials for tokens.
type Authenticator interface {
	Login(ctx context.Context, creds client.Credentials) (client.LoginResponse, error)
}

// Manager holds the current session and keeps the store in sync.
type Manager struct {
	mu      sync.Mutex
	store   Store
	logger  *zap.Logger
	current Session
	loaded  bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager builds a Manager over store. A nil store keeps the session in
// memory only.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Load rehydrates the persisted session. It reports false when none exists.
func (m *Manager) Load(ctx context.Context) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return Session{}, false, err
	}
	return m.current, m.current.Valid(), nil
}

func (m *Manager) loadLocked(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	if m.store == nil {
		m.loaded = true
		return nil
	}
	raw, ok, err := m.store.Get(ctx, StorageKey)
	if err != nil {
		return fmt.Errorf("session: load: %w", err)
	}
	m.loaded = true
	if !ok || len(raw) == 0 {
		m.current = Session{}
		return nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		m.logger.Warn("session: discarding unreadable session", zap.Error(err))
		m.current = Session{}
		return nil
	}
	m.current = s
	return nil
}

// Current returns the in-memory session.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.current.Valid()
}

// Save replaces and persists the session.
func (m *Manager) Save(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(ctx, s)
}

func (m *Manager) saveLocked(ctx context.Context, s Session) error {
	if m.store != nil {
		raw, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("session: encode: %w", err)
		}
		if err := m.store.Put(ctx, StorageKey, raw); err != nil {
			return fmt.Errorf("session: save: %w", err)
		}
	}
	m.current = s
	m.loaded = true
	return nil
}

// Login authenticates and persists the resulting session.
func (m *Manager) Login(ctx context.Context, auth Authenticator, creds client.Credentials) (Session, error) {
	resp, err := auth.Login(ctx, creds)
	if err != nil {
		return Session{}, err
	}
	s, err := FromTokens(resp.AccessToken, resp.RefreshToken)
	if err != nil {
		return Session{}, err
	}
	if resp.UserID != "" {
		s.UserID = resp.UserID
	}
	if resp.Username != "" {
		s.Username = resp.Username
	}
	if resp.Email != "" {
		s.Email = resp.Email
	}
	if resp.Role != "" {
		s.Role = resp.Role
	}
	s.Verified = resp.IsVerified
	if err := m.Save(ctx, s); err != nil {
		return Session{}, err
	}
	m.logger.Info("session: signed in", zap.String("user", s.UserID))
	return s, nil
}

// AccessToken implements client.TokenSource.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return "", err
	}
	return m.current.AccessToken, nil
}

// RefreshToken implements client.TokenRefresher.
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return "", err
	}
	if m.current.RefreshToken == "" {
		return "", ErrNoSession
	}
	return m.current.RefreshToken, nil
}

// StoreTokens implements client.TokenRefresher. The profile is re-read from
// the new access token; fields missing from its claims keep their old values.
func (m *Manager) StoreTokens(ctx context.Context, access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := FromTokens(access, refresh)
	if err != nil {
		return err
	}
	prev := m.current
	if next.UserID == "" {
		next.UserID = prev.UserID
	}
	if next.Username == "" {
		next.Username = prev.Username
	}
	if next.Email == "" {
		next.Email = prev.Email
	}
	if next.Role == "" {
		next.Role = prev.Role
	}
	if next.RefreshToken == "" {
		next.RefreshToken = prev.RefreshToken
	}
	if !hasClaim(access, "isVerified") {
		next.Verified = prev.Verified
	}
	return m.saveLocked(ctx, next)
}

func hasClaim(access, key string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(access), claims); err != nil {
		return false
	}
	_, ok := claims[key]
	return ok
}

// UserID implements client.UserScope.
func (m *Manager) UserID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.loadLocked(ctx); err != nil {
		return "", err
	}
	return m.current.UserID, nil
}

// Clear signs the user out and removes the persisted session.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Session{}
	m.loaded = true
	if m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	m.logger.Info("session: signed out")
	return nil
}

var (
	_ client.TokenRefresher = (*Manager)(nil)
	_ client.UserScope      = (*Manager)(nil)
)
