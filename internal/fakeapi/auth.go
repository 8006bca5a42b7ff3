package fakeapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type user struct {
	ID       string
	Email    string
	Username string
	Password string
	Role     string
	Verified bool
}

type ctxKey struct{}

// AddUser registers a verified account and returns its id.
func (s *Server) AddUser(email, password, username, role string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role == "" {
		role = "USER"
	}
	u := &user{
		ID:       uuid.NewString(),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Username: username,
		Password: password,
		Role:     role,
		Verified: true,
	}
	s.users[u.Email] = u
	return u.ID
}

// Verify marks a registered account as verified.
func (s *Server) Verify(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if ok {
		u.Verified = true
	}
	return ok
}

// RevokeAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) RevokeAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.active)
}

// IssueTokens signs a token pair for an existing account, bypassing login.
func (s *Server) IssueTokens(email string) (access, refresh string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return "", "", errors.New("fakeapi: unknown user")
	}
	return s.issueLocked(u)
}

func (s *Server) issueLocked(u *user) (string, string, error) {
	now := s.now()
	accessID := uuid.NewString()
	claims := func(kind, id string, ttl time.Duration) jwt.MapClaims {
		return jwt.MapClaims{
			"userId":     u.ID,
			"username":   u.Username,
			"email":      u.Email,
			"isVerified": u.Verified,
			"role":       u.Role,
			"typ":        kind,
			"jti":        id,
			"iat":        now.Unix(),
			"exp":        now.Add(ttl).Unix(),
		}
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims("access", accessID, s.accessTTL)).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims("refresh", uuid.NewString(), 24*time.Hour)).SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	s.active[accessID] = struct{}{}
	s.refresh[refresh] = u.Email
	return access, refresh, nil
}

func (s *Server) parse(token, kind string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if typ, _ := claims["typ"].(string); typ != kind {
		return nil, errors.New("fakeapi: wrong token type")
	}
	return claims, nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := s.parse(token, "access")
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		s.mu.Lock()
		_, active := s.active[claimString(claims, "jti")]
		u := s.users[claimString(claims, "email")]
		s.mu.Unlock()
		if !active || u == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	})
}

func currentUser(r *http.Request) *user {
	u, _ := r.Context().Value(ctxKey{}).(*user)
	return u
}

func claimString(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	var msgs []string
	msgs = append(msgs, required("email", body.Email)...)
	msgs = append(msgs, required("password", body.Password)...)
	if len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(body.Email))]
	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "User not found")
		return
	case u.Password != body.Password:
		writeError(w, http.StatusForbidden, "Password incorrect")
		return
	case !u.Verified:
		writeError(w, http.StatusForbidden, "Verify your email and activate your account")
		return
	}
	access, refresh, err := s.issueLocked(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "An error occurred while login user.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":       u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"isVerified":   u.Verified,
		"role":         u.Role,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	var msgs []string
	msgs = append(msgs, required("email", body.Email)...)
	msgs = append(msgs, required("password", body.Password)...)
	msgs = append(msgs, required("username", body.Username)...)
	if len(msgs) > 0 {
		writeError(w, http.StatusBadRequest, msgs...)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if _, exists := s.users[email]; exists {
		writeError(w, http.StatusConflict, "User already exists.")
		return
	}
	s.users[email] = &user{
		ID:       uuid.NewString(),
		Email:    email,
		Username: body.Username,
		Password: body.Password,
		Role:     "USER",
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created. Verify your email."})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeJSON(r, &body); err != nil || strings.TrimSpace(body.RefreshToken) == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if _, err := s.parse(body.RefreshToken, "refresh"); err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.refresh[body.RefreshToken]
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	delete(s.refresh, body.RefreshToken)
	u, ok := s.users[email]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	access, refresh, err := s.issueLocked(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "An error occurred while login user.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": access, "refreshToken": refresh})
}
