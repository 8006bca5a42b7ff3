// Package offline replays mutations that were queued while the backend was
// unreachable. Sync is explicit: nothing retries in the background.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-farmform/pkg/client"
)

// Entry is a queued request with its delivery bookkeeping.
type Entry struct {
	client.QueuedRequest
	Attempts  int
	LastError string
}

// Store is the persistent queue plus the temporary id map. Pending must list
// report creations before other entities, oldest first.
type Store interface {
	Pending(ctx context.Context) ([]Entry, error)
	Remove(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, cause error) error
	MapID(ctx context.Context, tempID, serverID string) error
	LookupID(ctx context.Context, tempID string) (string, bool, error)
}

// Replayer sends a queued request and returns the response body.
type Replayer interface {
	Replay(ctx context.Context, item client.QueuedRequest) (json.RawMessage, error)
}

// Result counts what a sync did with each pending item.
type Result struct {
	Processed int
	Postponed int
	Failed    int
	// Errors holds the failure of each Failed item, keyed by queue id.
	Errors map[string]error
}

// Empty reports whether there was nothing to sync.
func (r Result) Empty() bool {
	return r.Processed == 0 && r.Postponed == 0 && r.Failed == 0
}

// ReferenceKeys are the body keys whose temporary ids get remapped.
var ReferenceKeys = []string{"report_id", "reportId", "field_id", "fieldId"}

// Syncer drains a Store through a Replayer.
type Syncer struct {
	store    Store
	replayer Replayer
	logger   *zap.Logger
	running  sync.Mutex
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Syncer.
func New(store Store, replayer Replayer, opts ...Option) *Syncer {
	s := &Syncer{store: store, replayer: replayer, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Sync replays every pending item once. Delivered items are removed. Items
// referencing a temporary id that has no server id yet, and items queued by
// another user, are postponed. Failed items stay queued with their attempt
// recorded.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	if !s.running.TryLock() {
		return Result{}, ErrSyncInProgress
	}
	defer s.running.Unlock()

	var res Result
	items, err := s.store.Pending(ctx)
	if err != nil {
		return res, fmt.Errorf("offline: list pending: %w", err)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		req, err := s.resolve(ctx, item.QueuedRequest)
		if errors.Is(err, ErrUnresolved) {
			res.Postponed++
			s.logger.Debug("offline: postponed", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		if err != nil {
			return res, err
		}

		raw, err := s.replayer.Replay(ctx, req)
		if errors.Is(err, client.ErrOtherUser) {
			res.Postponed++
			s.logger.Debug("offline: postponed item of another user", zap.String("id", item.ID))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			if res.Errors == nil {
				res.Errors = make(map[string]error)
			}
			res.Errors[item.ID] = err
			if markErr := s.store.MarkFailed(ctx, item.ID, err); markErr != nil {
				return res, fmt.Errorf("offline: mark failed: %w", markErr)
			}
			s.logger.Info("offline: replay failed",
				zap.String("id", item.ID), zap.String("path", req.Path), zap.Int("attempts", item.Attempts+1), zap.Error(err))
			continue
		}

		if item.TempID != "" {
			serverID, err := createdID(raw)
			if err != nil {
				s.logger.Warn("offline: created entity without id", zap.String("id", item.ID), zap.Error(err))
			} else if err := s.store.MapID(ctx, item.TempID, serverID); err != nil {
				return res, fmt.Errorf("offline: map id: %w", err)
			}
		}
		if err := s.store.Remove(ctx, item.ID); err != nil {
			return res, fmt.Errorf("offline: remove delivered item: %w", err)
		}
		res.Processed++
	}

	s.logger.Info("offline: sync finished",
		zap.Int("processed", res.Processed), zap.Int("postponed", res.Postponed), zap.Int("failed", res.Failed))
	return res, nil
}

// resolve rewrites temporary references in the path and body of item.
func (s *Syncer) resolve(ctx context.Context, item client.QueuedRequest) (client.QueuedRequest, error) {
	lookup := func(tempID string) (string, error) {
		serverID, ok, err := s.store.LookupID(ctx, tempID)
		if err != nil {
			return "", fmt.Errorf("offline: lookup id: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnresolved, tempID)
		}
		return serverID, nil
	}

	segments := strings.Split(item.Path, "/")
	for i, segment := range segments {
		if !isTemp(segment) {
			continue
		}
		serverID, err := lookup(segment)
		if err != nil {
			return item, err
		}
		segments[i] = serverID
	}
	item.Path = strings.Join(segments, "/")

	if len(item.Body) == 0 {
		return item, nil
	}
	var doc any
	if err := json.Unmarshal(item.Body, &doc); err != nil {
		return item, nil
	}
	changed, err := remap(doc, lookup)
	if err != nil {
		return item, err
	}
	if changed {
		raw, err := json.Marshal(doc)
		if err != nil {
			return item, fmt.Errorf("offline: encode body: %w", err)
		}
		item.Body = raw
	}
	return item, nil
}

func remap(node any, lookup func(string) (string, error)) (bool, error) {
	changed := false
	switch typed := node.(type) {
	case map[string]any:
		for key, child := range typed {
			if str, ok := child.(string); ok && isReferenceKey(key) && isTemp(str) {
				serverID, err := lookup(str)
				if err != nil {
					return changed, err
				}
				typed[key] = idValue(serverID)
				changed = true
				continue
			}
			sub, err := remap(child, lookup)
			changed = changed || sub
			if err != nil {
				return changed, err
			}
		}
	case []any:
		for _, child := range typed {
			sub, err := remap(child, lookup)
			changed = changed || sub
			if err != nil {
				return changed, err
			}
		}
	}
	return changed, nil
}

func isReferenceKey(key string) bool {
	return slices.Contains(ReferenceKeys, key)
}

func isTemp(value string) bool {
	return strings.HasPrefix(value, client.TempIDPrefix)
}

// idValue keeps numeric server ids numeric in the JSON body.
func idValue(serverID string) any {
	if n, err := strconv.ParseInt(serverID, 10, 64); err == nil {
		return n
	}
	return serverID
}

func createdID(raw json.RawMessage) (string, error) {
	var body struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", err
	}
	id := strings.Trim(strings.TrimSpace(string(body.ID)), `"`)
	if id == "" || id == "null" || id == "0" {
		return "", errors.New("offline: response has no id")
	}
	return id, nil
}
