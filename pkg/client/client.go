package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how long cached list responses are served.
const DefaultCacheTTL = 5 * time.Minute

const maxErrorBody = 64 << 10

// Client talks to the farm REST backend.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	tokens   TokenSource
	cache    Cache
	cacheTTL time.Duration
	queue    Queue
	contract Contract
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string

	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource sets the bearer token provider. When it also implements
// TokenRefresher, 401 responses trigger one refresh.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithCache enables response caching for list endpoints.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithQueue enables the offline queue for report and measurement mutations.
func WithQueue(q Queue) Option {
	return func(c *Client) {
		c.queue = q
	}
}

// WithContract validates every request before it is sent.
func WithContract(contract Contract) Option {
	return func(c *Client) {
		c.contract = contract
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for queued items.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, ErrBaseURL
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrBaseURL, baseURL)
	}

	c := &Client{
		baseURL:  parsed,
		http:     &http.Client{Timeout: 30 * time.Second},
		cacheTTL: DefaultCacheTTL,
		logger:   zap.NewNop(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

type call struct {
	method     string
	template   string
	params     []any
	body       any
	out        any
	public     bool
	cache      bool
	invalidate []string
	entity     string
	tempID     string

	// raw is sent verbatim and skips the contract check.
	raw json.RawMessage
}

func (c *Client) do(ctx context.Context, cl call) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path, err := expandPath(cl.template, cl.params...)
	if err != nil {
		return err
	}

	payload := []byte(cl.raw)
	if cl.raw == nil && cl.body != nil {
		if payload, err = json.Marshal(cl.body); err != nil {
			return fmt.Errorf("client: encode %s %s: %w", cl.method, path, err)
		}
	}
	if c.contract != nil && cl.raw == nil {
		if err := c.contract.CheckRequest(cl.method, cl.template, payload); err != nil {
			return fmt.Errorf("%w: %v", ErrContract, err)
		}
	}

	var token string
	if !cl.public {
		if token, err = c.accessToken(ctx); err != nil {
			return err
		}
	}

	scope := c.scope(ctx)
	key := scope + path
	useCache := cl.cache && cl.method == http.MethodGet && c.cache != nil
	if useCache {
		if raw, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			c.logger.Debug("client: cache hit", zap.String("path", path))
			return decodeInto(raw, cl.out, cl.method, path)
		} else if err != nil {
			c.logger.Warn("client: cache read failed", zap.String("path", path), zap.Error(err))
		}
	}

	status, raw, err := c.send(ctx, cl.method, path, payload, token)
	if err != nil {
		return c.maybeQueue(ctx, cl, path, payload, err)
	}

	if status == http.StatusUnauthorized && !cl.public {
		token, err = c.refresh(ctx, token)
		if err != nil {
			return err
		}
		status, raw, err = c.send(ctx, cl.method, path, payload, token)
		if err != nil {
			return c.maybeQueue(ctx, cl, path, payload, err)
		}
		if status == http.StatusUnauthorized {
			c.clearSession(ctx)
			return fmt.Errorf("%w: %s %s rejected after refresh", ErrUnauthenticated, cl.method, path)
		}
	}

	if status < 200 || status >= 300 {
		return decodeAPIError(cl.method, path, status, raw, payload)
	}

	if useCache && len(raw) > 0 {
		if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
			c.logger.Warn("client: cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	c.invalidate(ctx, scope, cl.invalidate...)
	return decodeInto(raw, cl.out, cl.method, path)
}

// scope is the cache key prefix of the signed-in user, "" when the token
// source does not know the user.
func (c *Client) scope(ctx context.Context) string {
	userID := c.userID(ctx)
	if userID == "" {
		return ""
	}
	return "user:" + userID
}

func (c *Client) userID(ctx context.Context) string {
	us, ok := c.tokens.(UserScope)
	if !ok {
		return ""
	}
	userID, err := us.UserID(ctx)
	if err != nil {
		c.logger.Warn("client: read user id", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(userID)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("client: transport error",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	limit := int64(maxErrorBody)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		limit = -1
	}
	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return 0, nil, fmt.Errorf("client: read %s %s: %w", method, path, err)
	}
	c.logger.Debug("client: request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))
	return resp.StatusCode, raw, nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", ErrUnauthenticated
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}

// refresh renews the tokens once. Concurrent callers that observed the same
// rejected token share a single refresh.
func (c *Client) refresh(ctx context.Context, rejected string) (string, error) {
	refresher, ok := c.tokens.(TokenRefresher)
	if !ok {
		return "", ErrUnauthenticated
	}
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current, err := refresher.AccessToken(ctx); err == nil && current != "" && current != rejected {
		return current, nil
	}
	refreshToken, err := refresher.RefreshToken(ctx)
	if err != nil || strings.TrimSpace(refreshToken) == "" {
		c.clearSession(ctx)
		return "", ErrUnauthenticated
	}
	tokens, err := c.RefreshTokens(ctx, refreshToken)
	if err != nil {
		c.logger.Info("client: token refresh failed", zap.Error(err))
		c.clearSession(ctx)
		return "", fmt.Errorf("%w: refresh failed: %v", ErrUnauthenticated, err)
	}
	if err := refresher.StoreTokens(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return "", fmt.Errorf("client: store refreshed tokens: %w", err)
	}
	return tokens.AccessToken, nil
}

func (c *Client) clearSession(ctx context.Context) {
	if refresher, ok := c.tokens.(TokenRefresher); ok {
		if err := refresher.Clear(ctx); err != nil {
			c.logger.Warn("client: clear session failed", zap.Error(err))
		}
	}
}

func (c *Client) invalidate(ctx context.Context, scope string, prefixes ...string) {
	if c.cache == nil {
		return
	}
	for _, prefix := range prefixes {
		if err := c.cache.InvalidatePrefix(ctx, scope+prefix); err != nil {
			c.logger.Warn("client: cache invalidation failed", zap.String("prefix", prefix), zap.Error(err))
		}
	}
}

// maybeQueue persists queueable mutations after a transport failure.
func (c *Client) maybeQueue(ctx context.Context, cl call, path string, payload []byte, cause error) error {
	if cl.entity == "" || c.queue == nil || ctx.Err() != nil {
		return cause
	}
	item := QueuedRequest{
		ID:        c.newID(),
		Method:    cl.method,
		Path:      path,
		Body:      payload,
		Entity:    cl.entity,
		TempID:    cl.tempID,
		UserID:    c.userID(ctx),
		CreatedAt: c.now().UTC(),
	}
	if err := c.queue.Enqueue(ctx, item); err != nil {
		return errors.Join(cause, fmt.Errorf("client: enqueue: %w", err))
	}
	c.logger.Info("client: request queued",
		zap.String("method", cl.method), zap.String("path", path), zap.String("entity", cl.entity))
	return &QueuedError{Item: item, Cause: cause}
}

func decodeInto(raw []byte, out any, method, path string) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

// expandPath substitutes {name} segments of template with params in order.
func expandPath(template string, params ...any) (string, error) {
	segments := strings.Split(template, "/")
	next := 0
	for i, segment := range segments {
		if !strings.HasPrefix(segment, "{") || !strings.HasSuffix(segment, "}") {
			continue
		}
		if next >= len(params) {
			return "", fmt.Errorf("client: missing parameter %s for %s", segment, template)
		}
		value := strings.TrimSpace(fmt.Sprint(params[next]))
		if value == "" {
			return "", fmt.Errorf("client: empty parameter %s for %s", segment, template)
		}
		segments[i] = url.PathEscape(value)
		next++
	}
	if next != len(params) {
		return "", fmt.Errorf("client: %d extra parameters for %s", len(params)-next, template)
	}
	return strings.Join(segments, "/"), nil
}
