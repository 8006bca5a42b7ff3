// Package fakeapi is an in-memory stand-in for the farm REST backend. It
// serves the same routes and NestJS style error bodies so the client, the
// offline sync and the screens can be exercised end to end in tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Server holds the in-memory backend state.
type Server struct {
	mu sync.Mutex

	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
	logger    *zap.Logger

	users   map[string]*user
	active  map[string]struct{}
	refresh map[string]string

	fields       map[string]*fieldRecord
	pens         map[int]*penRecord
	objects      map[int]*objectRecord
	variables    map[int]*variableRecord
	penVariables map[int]*penVariableRecord
	reports      map[int]*reportRecord
	measurements []measurementRecord
	nextID       int

	requests []string
	failures []failure

	router chi.Router
}

type failure struct {
	status   int
	messages []string
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the HMAC key used to sign tokens.
func WithSecret(secret string) Option {
	return func(s *Server) {
		if secret != "" {
			s.secret = []byte(secret)
		}
	}
}

// WithAccessTTL sets the lifetime of access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger attaches a logger for request traces.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds an empty backend.
func New(opts ...Option) *Server {
	s := &Server{
		secret:       []byte("fakeapi-secret"),
		accessTTL:    time.Hour,
		now:          time.Now,
		logger:       zap.NewNop(),
		users:        make(map[string]*user),
		active:       make(map[string]struct{}),
		refresh:      make(map[string]string),
		fields:       make(map[string]*fieldRecord),
		pens:         make(map[int]*penRecord),
		objects:      make(map[int]*objectRecord),
		variables:    make(map[int]*variableRecord),
		penVariables: make(map[int]*penVariableRecord),
		reports:      make(map[int]*reportRecord),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.trace)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/refreshToken", s.handleRefresh)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate, s.injectFailure)

		r.Route("/fields", func(r chi.Router) {
			r.Post("/", s.handleCreateField)
			r.Get("/byUserId/{id}", s.handleListFields)
			r.Get("/{id}", s.handleGetField)
			r.Patch("/{id}", s.handleUpdateField)
			r.Delete("/{id}", s.handleDeleteField)
		})
		r.Route("/pens", func(r chi.Router) {
			r.Post("/", s.handleCreatePen)
			r.Get("/byField/{fieldId}", s.handleListPens)
			r.Get("/{id}", s.handleGetPen)
			r.Patch("/{id}", s.handleUpdatePen)
			r.Delete("/{id}", s.handleDeletePen)
		})
		r.Route("/type-of-objects", func(r chi.Router) {
			r.Post("/", s.handleCreateObject)
			r.Get("/", s.handleListObjects)
			r.Get("/{id}", s.handleGetObject)
			r.Patch("/{id}", s.handleUpdateObject)
			r.Delete("/{id}", s.handleDeleteObject)
		})
		r.Route("/variables", func(r chi.Router) {
			r.Get("/byUser/{id}", s.handleListVariables)
			r.Get("/byObjectId/{id}", s.handleListVariablesByObject)
			r.Post("/{id}", s.handleCreateVariable)
			r.Get("/{id}", s.handleGetVariable)
			r.Patch("/{id}", s.handleUpdateVariable)
			r.Delete("/{id}", s.handleDeleteVariable)
		})
		r.Route("/pens-variables-type-of-objects", func(r chi.Router) {
			r.Post("/", s.handleCreatePenVariable)
			r.Get("/type-of-object/{typeOfObjectId}/{penId}", s.handleListPenVariables)
			r.Patch("/{penId}/{variableId}/{typeOfObjectId}", s.handleUpdatePenVariable)
			r.Delete("/{penId}/{variableId}/{typeOfObjectId}", s.handleDeletePenVariable)
		})
		r.Route("/reports", func(r chi.Router) {
			r.Post("/byFieldId/{fieldId}", s.handleCreateReport)
			r.Get("/byField/{fieldId}", s.handleListReports)
			r.Get("/{id}", s.handleGetReport)
			r.Patch("/{id}", s.handleUpdateReport)
			r.Delete("/{id}", s.handleDeleteReport)
		})
		r.Route("/measurements", func(r chi.Router) {
			r.Post("/", s.handleCreateMeasurements)
			r.Get("/stats/byFieldId/{fieldId}", s.handleMeasurementStats)
		})
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/overview", s.handleOverview)
			r.Get("/last-activity", s.handleLastActivity)
			r.Get("/monthly-data", s.handleMonthlyData)
			r.Get("/user-stats", s.handleUserStats)
		})
	})
	return r
}

// Requests returns "METHOD /path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// RequestCount returns how many requests matching "METHOD /path" were served.
func (s *Server) RequestCount(methodPath string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, req := range s.requests {
		if req == methodPath {
			count++
		}
	}
	return count
}

// FailNext makes the next authenticated request answer status with a NestJS
// error body listing messages.
func (s *Server) FailNext(status int, messages ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, messages: messages})
}

func (s *Server) trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		s.logger.Debug("fakeapi: request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		var f *failure
		if len(s.failures) > 0 {
			head := s.failures[0]
			s.failures = s.failures[1:]
			f = &head
		}
		s.mu.Unlock()
		if f != nil {
			writeError(w, f.status, f.messages...)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a NestJS style error body. A single message is sent as a
// string, several as a list.
func writeError(w http.ResponseWriter, status int, messages ...string) {
	var message any = http.StatusText(status)
	switch len(messages) {
	case 0:
	case 1:
		message = messages[0]
	default:
		message = messages
	}
	writeJSON(w, status, map[string]any{
		"statusCode": status,
		"message":    message,
		"error":      http.StatusText(status),
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// intParam extracts an integer path parameter.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation failed (numeric string is expected) for %s", name))
		return 0, false
	}
	return id, true
}

func required(name, value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{name + " should not be empty"}
	}
	return nil
}
