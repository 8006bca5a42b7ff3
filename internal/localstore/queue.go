package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-farmform/pkg/client"
	"github.com/goliatone/go-farmform/pkg/offline"
)

// Queue persists mutations waiting for a sync and the ids they were given
// by the server.
type Queue struct{ s *Store }

var (
	_ client.Queue  = Queue{}
	_ offline.Store = Queue{}
)

// Enqueue implements client.Queue.
func (q Queue) Enqueue(ctx context.Context, item client.QueuedRequest) error {
	if item.ID == "" {
		return errors.New("localstore: queued request without id")
	}
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if err := q.s.check(); err != nil {
		return err
	}
	created := item.CreatedAt
	if created.IsZero() {
		created = q.s.now()
	}
	_, err := q.s.db.ExecContext(ctx,
		`INSERT INTO queue (id, method, path, body, entity, temp_id, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Method, item.Path, []byte(item.Body), item.Entity, item.TempID, item.UserID, created.UnixNano())
	if err != nil {
		return fmt.Errorf("localstore: enqueue %s: %w", item.ID, err)
	}
	return nil
}

// Pending lists queued requests: report creations first, then oldest first.
func (q Queue) Pending(ctx context.Context) ([]offline.Entry, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()
	if err := q.s.check(); err != nil {
		return nil, err
	}
	rows, err := q.s.db.QueryContext(ctx,
		`SELECT id, method, path, body, entity, temp_id, user_id, created_at, attempts, last_error
		 FROM queue
		 ORDER BY CASE WHEN entity = ? THEN 0 ELSE 1 END, created_at, id`,
		client.EntityReports)
	if err != nil {
		return nil, fmt.Errorf("localstore: list queue: %w", err)
	}
	defer rows.Close()

	var out []offline.Entry
	for rows.Next() {
		var e offline.Entry
		var body []byte
		var created int64
		if err := rows.Scan(&e.ID, &e.Method, &e.Path, &body, &e.Entity, &e.TempID, &e.UserID, &created, &e.Attempts, &e.LastError); err != nil {
			return nil, fmt.Errorf("localstore: scan queue: %w", err)
		}
		if len(body) > 0 {
			e.Body = body
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("localstore: list queue: %w", err)
	}
	return out, nil
}

// Len returns the number of queued requests.
func (q Queue) Len(ctx context.Context) (int, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()
	if err := q.s.check(); err != nil {
		return 0, err
	}
	var n int
	if err := q.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("localstore: count queue: %w", err)
	}
	return n, nil
}

// Remove deletes a delivered request.
func (q Queue) Remove(ctx context.Context, id string) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if err := q.s.check(); err != nil {
		return err
	}
	if _, err := q.s.db.ExecContext(ctx, `DELETE FROM queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("localstore: remove %s: %w", id, err)
	}
	return nil
}

// Discard drops a request that will never be delivered. Queued requests
// referencing its temporary id and never resolved are dropped too. It
// reports ErrNotQueued when id is unknown.
func (q Queue) Discard(ctx context.Context, id string) (int, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if err := q.s.check(); err != nil {
		return 0, err
	}
	tx, err := q.s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("localstore: discard %s: %w", id, err)
	}
	defer tx.Rollback()

	var tempID string
	err = tx.QueryRowContext(ctx, `SELECT temp_id FROM queue WHERE id = ?`, id).Scan(&tempID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrNotQueued, id)
	}
	if err != nil {
		return 0, fmt.Errorf("localstore: discard %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM queue WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("localstore: discard %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if tempID != "" {
		var mapped int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM id_map WHERE temp_id = ?`, tempID).Scan(&mapped); err != nil {
			return 0, fmt.Errorf("localstore: discard %s: %w", id, err)
		}
		if mapped == 0 {
			res, err := tx.ExecContext(ctx, `DELETE FROM queue WHERE instr(path, ?) > 0 OR instr(CAST(body AS TEXT), ?) > 0`, tempID, tempID)
			if err != nil {
				return 0, fmt.Errorf("localstore: discard dependants of %s: %w", id, err)
			}
			dependants, _ := res.RowsAffected()
			n += dependants
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("localstore: discard %s: %w", id, err)
	}
	return int(n), nil
}

// Clear empties the queue and the id map.
func (q Queue) Clear(ctx context.Context) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if err := q.s.check(); err != nil {
		return err
	}
	if _, err := q.s.db.ExecContext(ctx, `DELETE FROM queue; DELETE FROM id_map;`); err != nil {
		return fmt.Errorf("localstore: clear queue: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt. The request stays queued.
func (q Queue) MarkFailed(ctx context.Context, id string, cause error) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if err := q.s.check(); err != nil {
		return err
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := q.s.db.ExecContext(ctx,
		`UPDATE queue SET attempts = attempts + 1, last_error = ? WHERE id = ?`, msg, id); err != nil {
		return fmt.Errorf("localstore: mark %s failed: %w", id, err)
	}
	return nil
}

// MapID records the server id a temporary id resolved to.
func (q Queue) MapID(ctx context.Context, tempID, serverID string) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if err := q.s.check(); err != nil {
		return err
	}
	_, err := q.s.db.ExecContext(ctx,
		`INSERT INTO id_map (temp_id, server_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(temp_id) DO UPDATE SET server_id = excluded.server_id`,
		tempID, serverID, q.s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("localstore: map %s: %w", tempID, err)
	}
	return nil
}

// LookupID resolves a temporary id.
func (q Queue) LookupID(ctx context.Context, tempID string) (string, bool, error) {
	q.s.mu.RLock()
	defer q.s.mu.RUnlock()
	if err := q.s.check(); err != nil {
		return "", false, err
	}
	var serverID string
	err := q.s.db.QueryRowContext(ctx, `SELECT server_id FROM id_map WHERE temp_id = ?`, tempID).Scan(&serverID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("localstore: lookup %s: %w", tempID, err)
	}
	return serverID, true, nil
}
